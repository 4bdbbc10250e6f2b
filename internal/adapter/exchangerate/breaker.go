package exchangerate

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// BreakerConfig tunes the circuit breaker around the primary provider
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig opens after 5 consecutive failures and probes again after 30 seconds
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerProvider calls the primary provider through a circuit breaker and answers
// from the fallback provider whenever the primary fails or the circuit is open.
// A pair the primary does not quote is reported as not found, not retried on the fallback.
type BreakerProvider struct {
	primary  domain.ExchangeRateProvider
	fallback domain.ExchangeRateProvider
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewBreakerProvider wraps primary with a circuit breaker falling back to fallback
func NewBreakerProvider(primary, fallback domain.ExchangeRateProvider, cfg BreakerConfig, logger *zap.Logger) *BreakerProvider {
	p := &BreakerProvider{primary: primary, fallback: fallback, logger: logger}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "exchange-rates",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return p
}

func (p *BreakerProvider) GetExchangeRate(ctx context.Context, source, target domain.Currency) (domain.ExchangeRate, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.primary.GetExchangeRate(ctx, source, target)
	})
	if err == nil {
		return result.(domain.ExchangeRate), nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ExchangeRate{}, err
	}

	p.logFallback(err)
	return p.fallback.GetExchangeRate(ctx, source, target)
}

func (p *BreakerProvider) GetAllRates(ctx context.Context, base domain.Currency) (map[string]decimal.Decimal, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.primary.GetAllRates(ctx, base)
	})
	if err == nil {
		return result.(map[string]decimal.Decimal), nil
	}

	p.logFallback(err)
	return p.fallback.GetAllRates(ctx, base)
}

// State reports the breaker state
func (p *BreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}

func (p *BreakerProvider) logFallback(err error) {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.logger.Warn("exchange rate provider unavailable, circuit open; using fallback rates", zap.Error(err))
		return
	}
	p.logger.Warn("exchange rate provider failed; using fallback rates", zap.Error(err))
}
