package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// setupTestRedis creates a miniredis server and a client connected to it
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	_, err = NewClient(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestWalletLocker_MutualExclusion(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewWalletLocker(client, DefaultLockOptions(), zap.NewNop())
	id := uuid.New()

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithWalletLocks(context.Background(), []uuid.UUID{id}, func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					m := atomic.LoadInt32(&maxInFlight)
					if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight)
}

func TestWalletLocker_ReleasesAndReenters(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewWalletLocker(client, DefaultLockOptions(), zap.NewNop())
	a, b := uuid.New(), uuid.New()

	fnErr := errors.New("boom")
	err := locker.WithWalletLocks(context.Background(), []uuid.UUID{a, b}, func(ctx context.Context) error {
		assert.True(t, mr.Exists(walletLockPrefix+a.String()))
		assert.True(t, mr.Exists(walletLockPrefix+b.String()))

		// nested calls for held ids must not block
		return locker.WithWalletLocks(ctx, []uuid.UUID{b, a}, func(ctx context.Context) error {
			return fnErr
		})
	})
	assert.ErrorIs(t, err, fnErr)
	assert.False(t, mr.Exists(walletLockPrefix+a.String()))
	assert.False(t, mr.Exists(walletLockPrefix+b.String()))
}

func TestWalletLocker_ContentionFails(t *testing.T) {
	mr, client := setupTestRedis(t)
	id := uuid.New()
	require.NoError(t, mr.Set(walletLockPrefix+id.String(), "someone-else"))

	locker := NewWalletLocker(client, LockOptions{Expiry: time.Second, Tries: 2, RetryDelay: time.Millisecond}, zap.NewNop())
	called := false
	err := locker.WithWalletLocks(context.Background(), []uuid.UUID{id}, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "failed to acquire lock")
	assert.False(t, called)
}

func TestWalletLocker_ExtendsWhileHeld(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewWalletLocker(client, LockOptions{
		Expiry:         300 * time.Millisecond,
		Tries:          1,
		RetryDelay:     time.Millisecond,
		ExtendInterval: 20 * time.Millisecond,
	}, zap.NewNop())
	id := uuid.New()
	key := walletLockPrefix + id.String()

	err := locker.WithWalletLocks(context.Background(), []uuid.UUID{id}, func(ctx context.Context) error {
		// without extension the key would expire on the second fast-forward
		for i := 0; i < 5; i++ {
			time.Sleep(60 * time.Millisecond)
			mr.FastForward(200 * time.Millisecond)
			assert.True(t, mr.Exists(key), "lock expired while held after %d steps", i+1)
		}
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}

// MockProvider is a mock implementation of ExchangeRateProvider for testing
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetExchangeRate(ctx context.Context, source, target domain.Currency) (domain.ExchangeRate, error) {
	args := m.Called(ctx, source, target)
	return args.Get(0).(domain.ExchangeRate), args.Error(1)
}

func (m *MockProvider) GetAllRates(ctx context.Context, base domain.Currency) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func TestRateCache(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	usd, eur := domain.MustCurrency("USD"), domain.MustCurrency("EUR")
	quotedAt := time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC)

	live, err := domain.NewExchangeRate(usd, eur, decimal.RequireFromString("0.92"), quotedAt)
	require.NoError(t, err)

	next := new(MockProvider)
	next.On("GetExchangeRate", ctx, usd, eur).Return(live, nil).Twice()
	next.On("GetAllRates", ctx, usd).Return(map[string]decimal.Decimal{"EUR": decimal.RequireFromString("0.92")}, nil).Once()

	cache := NewRateCache(client, next, 10*time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		rate, err := cache.GetExchangeRate(ctx, usd, eur)
		require.NoError(t, err)
		assert.Equal(t, "0.92", rate.Rate().String())
		assert.True(t, quotedAt.Equal(rate.Timestamp()), "cached rate keeps the quote time")
	}
	next.AssertNumberOfCalls(t, "GetExchangeRate", 1)

	mr.FastForward(11 * time.Minute)
	_, err = cache.GetExchangeRate(ctx, usd, eur)
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "GetExchangeRate", 2)

	for i := 0; i < 2; i++ {
		rates, err := cache.GetAllRates(ctx, usd)
		require.NoError(t, err)
		assert.Equal(t, "0.92", rates["EUR"].String())
	}
	next.AssertNumberOfCalls(t, "GetAllRates", 1)
}

func TestRateCache_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	usd, jpy := domain.MustCurrency("USD"), domain.MustCurrency("JPY")

	next := new(MockProvider)
	next.On("GetExchangeRate", ctx, usd, jpy).Return(domain.ExchangeRate{}, errors.New("down"))

	cache := NewRateCache(client, next, time.Minute, zap.NewNop())
	_, err := cache.GetExchangeRate(ctx, usd, jpy)
	assert.EqualError(t, err, "down")
	assert.False(t, mr.Exists(rateKeyPrefix+"USD:JPY"))
}

func TestEventPublisher(t *testing.T) {
	ctx := context.Background()
	_, client := setupTestRedis(t)
	publisher := NewEventPublisher(client, DefaultChannelPrefix)

	sub := client.Subscribe(ctx, publisher.Channel(domain.EventWalletCreated))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	w, err := domain.NewWallet(domain.MustCurrency("GBP"), time.Now())
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, domain.NewWalletCreated(w, time.Now())))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "walletledger.events.wallet.created", msg.Channel)
		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &body))
		assert.Equal(t, w.ID().String(), body["wallet_id"])
		assert.Equal(t, "GBP", body["currency"])
		assert.Equal(t, domain.EventWalletCreated, body["event_name"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}
