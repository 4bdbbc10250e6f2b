package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// CrossCurrencyTransferInput represents the input for a transfer between wallets of different currencies
type CrossCurrencyTransferInput struct {
	SourceWalletID      uuid.UUID
	DestinationWalletID uuid.UUID
	Amount              decimal.Decimal // gross, in SourceCurrency
	SourceCurrency      string
	TargetCurrency      string
	Description         string
}

// CrossCurrencyTransferOutput describes what was debited, what was credited and at which rate
type CrossCurrencyTransferOutput struct {
	Transaction  *domain.Transaction
	SourceAmount domain.Money
	TargetAmount domain.Money
	Fee          domain.Money
	Rate         domain.ExchangeRate
	Timestamp    time.Time
	Events       []domain.Event
}

// ExchangeService orchestrates cross-currency transfers
type ExchangeService struct {
	WalletRepo      domain.WalletRepository
	TransactionRepo domain.TransactionRepository
	RateProvider    domain.ExchangeRateProvider
	Transactor      domain.Transactor
	Locker          domain.WalletLocker
	Publisher       domain.EventPublisher
	Exchange        *domain.CurrencyExchangeService
	Logger          *zap.Logger
	Now             func() time.Time
}

// NewExchangeService creates a new ExchangeService instance
func NewExchangeService(
	walletRepo domain.WalletRepository,
	transactionRepo domain.TransactionRepository,
	rateProvider domain.ExchangeRateProvider,
	transactor domain.Transactor,
	locker domain.WalletLocker,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *ExchangeService {
	return &ExchangeService{
		WalletRepo:      walletRepo,
		TransactionRepo: transactionRepo,
		RateProvider:    rateProvider,
		Transactor:      transactor,
		Locker:          locker,
		Publisher:       publisher,
		Exchange:        domain.NewCurrencyExchangeService(),
		Logger:          logger,
		Now:             time.Now,
	}
}

// CrossCurrencyTransfer debits the gross amount from the source wallet and credits the
// converted post-fee amount to the destination wallet
// Logic:
//  1. Fee is computed on the gross amount; the net amount is gross - fee
//  2. A fresh rate is fetched and the net amount converted (stale rates are rejected)
//  3. Under both wallet locks and one persistence transaction: wallet currencies must match
//     the requested currencies; source is debited the gross amount, destination credited
//     the converted amount, both tagged with one Transaction whose amount is the gross
//  4. The fee is retained, not transferred
func (s *ExchangeService) CrossCurrencyTransfer(ctx context.Context, input CrossCurrencyTransferInput) (*CrossCurrencyTransferOutput, error) {
	sourceCurrency, err := domain.CurrencyOf(input.SourceCurrency)
	if err != nil {
		return nil, err
	}
	targetCurrency, err := domain.CurrencyOf(input.TargetCurrency)
	if err != nil {
		return nil, err
	}
	gross, err := domain.MoneyOf(input.Amount, sourceCurrency)
	if err != nil {
		return nil, err
	}

	fee, err := s.Exchange.CalculateExchangeFee(gross)
	if err != nil {
		return nil, err
	}
	net, err := gross.Subtract(fee)
	if err != nil {
		return nil, err
	}

	rate, err := s.RateProvider.GetExchangeRate(ctx, sourceCurrency, targetCurrency)
	if err != nil {
		return nil, fmt.Errorf("exchange rate not available for %s to %s: %w", sourceCurrency, targetCurrency, err)
	}

	now := s.Now()
	converted, err := s.Exchange.Convert(net, rate, now)
	if err != nil {
		return nil, err
	}

	out := CrossCurrencyTransferOutput{
		SourceAmount: gross,
		TargetAmount: converted,
		Fee:          fee,
		Rate:         rate,
		Timestamp:    now,
	}

	ids := []uuid.UUID{input.SourceWalletID, input.DestinationWalletID}
	err = s.Locker.WithWalletLocks(ctx, ids, func(ctx context.Context) error {
		return s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			source, err := s.WalletRepo.LoadWallet(ctx, input.SourceWalletID)
			if err != nil {
				return err
			}
			destination, err := s.WalletRepo.LoadWallet(ctx, input.DestinationWalletID)
			if err != nil {
				return err
			}
			if source.Currency() != sourceCurrency {
				return &domain.CurrencyMismatchError{Expected: sourceCurrency, Actual: source.Currency()}
			}
			if destination.Currency() != targetCurrency {
				return &domain.CurrencyMismatchError{Expected: targetCurrency, Actual: destination.Currency()}
			}

			tx, err := domain.NewTransfer(source.ID(), destination.ID(), gross, rateDescription(input.Description, rate), now)
			if err != nil {
				return err
			}

			if _, err := source.Debit(gross, tx.ID, "Cross-currency transfer to "+destination.ID().String(), now); err != nil {
				return err
			}
			if _, err := destination.Credit(converted, tx.ID, "Cross-currency transfer from "+source.ID().String(), now); err != nil {
				return err
			}

			if err := s.WalletRepo.SaveWallet(ctx, source); err != nil {
				return fmt.Errorf("failed to save source wallet: %w", err)
			}
			if err := s.WalletRepo.SaveWallet(ctx, destination); err != nil {
				return fmt.Errorf("failed to save destination wallet: %w", err)
			}
			if err := s.TransactionRepo.SaveTransaction(ctx, tx); err != nil {
				return fmt.Errorf("failed to save transaction: %w", err)
			}
			out.Transaction = tx
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	out.Events = []domain.Event{domain.NewMoneyTransferred(out.Transaction, converted, now)}
	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, out.Events...); err != nil {
			s.Logger.Warn("failed to publish events", zap.Error(err))
		}
	}

	s.Logger.Info("cross-currency transfer completed",
		zap.String("transaction_id", out.Transaction.ID.String()),
		zap.String("source_amount", gross.String()),
		zap.String("target_amount", converted.String()),
		zap.String("fee", fee.String()),
		zap.String("rate", rate.Rate().String()),
	)
	return &out, nil
}

// GetRates returns every known rate quoted against base
func (s *ExchangeService) GetRates(ctx context.Context, baseCode string) (map[string]decimal.Decimal, error) {
	base, err := domain.CurrencyOf(baseCode)
	if err != nil {
		return nil, err
	}
	return s.RateProvider.GetAllRates(ctx, base)
}

// GetRate returns the current rate for one currency pair
func (s *ExchangeService) GetRate(ctx context.Context, sourceCode, targetCode string) (domain.ExchangeRate, error) {
	source, err := domain.CurrencyOf(sourceCode)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	target, err := domain.CurrencyOf(targetCode)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	return s.RateProvider.GetExchangeRate(ctx, source, target)
}

func rateDescription(description string, rate domain.ExchangeRate) string {
	suffix := fmt.Sprintf("(Rate: %s)", rate.Rate().String())
	if strings.TrimSpace(description) == "" {
		return "Cross-currency transfer " + suffix
	}
	return description + " " + suffix
}
