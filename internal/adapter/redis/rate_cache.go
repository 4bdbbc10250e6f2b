package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

const rateKeyPrefix = "rates:"

type cachedRate struct {
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

// RateCache is a read-through cache in front of another ExchangeRateProvider.
// Cached pairs keep the provider quote timestamp so staleness checks still apply.
type RateCache struct {
	client redis.UniversalClient
	next   domain.ExchangeRateProvider
	ttl    time.Duration
	logger *zap.Logger
}

// NewRateCache caches answers from next for ttl
func NewRateCache(client redis.UniversalClient, next domain.ExchangeRateProvider, ttl time.Duration, logger *zap.Logger) *RateCache {
	return &RateCache{client: client, next: next, ttl: ttl, logger: logger}
}

func (c *RateCache) GetExchangeRate(ctx context.Context, source, target domain.Currency) (domain.ExchangeRate, error) {
	key := rateKeyPrefix + source.Code() + ":" + target.Code()

	var cached cachedRate
	hit, err := c.get(ctx, key, &cached)
	if hit {
		return domain.NewExchangeRate(source, target, cached.Rate, cached.Timestamp)
	}
	if err != nil {
		c.logger.Warn("rate cache read failed", zap.String("key", key), zap.Error(err))
	}

	rate, err := c.next.GetExchangeRate(ctx, source, target)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	c.set(ctx, key, cachedRate{Rate: rate.Rate(), Timestamp: rate.Timestamp()})
	return rate, nil
}

func (c *RateCache) GetAllRates(ctx context.Context, base domain.Currency) (map[string]decimal.Decimal, error) {
	key := rateKeyPrefix + base.Code()

	var cached map[string]decimal.Decimal
	hit, err := c.get(ctx, key, &cached)
	if hit {
		return cached, nil
	}
	if err != nil {
		c.logger.Warn("rate cache read failed", zap.String("key", key), zap.Error(err))
	}

	rates, err := c.next.GetAllRates(ctx, base)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, rates)
	return rates, nil
}

// get reports a hit only when the key exists and decodes
func (c *RateCache) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached rates: %w", err)
	}
	return true, nil
}

func (c *RateCache) set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("failed to encode rates for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("rate cache write failed", zap.String("key", key), zap.Error(err))
	}
}
