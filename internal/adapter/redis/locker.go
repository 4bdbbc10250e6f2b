package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

const walletLockPrefix = "lock:wallet:"

// LockOptions tunes wallet lock acquisition
// Held locks are extended every ExtendInterval (Expiry/3 when zero) until fn returns,
// so Expiry only bounds how long a crashed holder blocks the wallet.
type LockOptions struct {
	Expiry         time.Duration
	Tries          int
	RetryDelay     time.Duration
	ExtendInterval time.Duration
}

// DefaultLockOptions expires an abandoned lock after 10 seconds and retries for about 3 seconds
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:     10 * time.Second,
		Tries:      64,
		RetryDelay: 50 * time.Millisecond,
	}
}

// WalletLocker implements domain.WalletLocker with one RedLock mutex per wallet
type WalletLocker struct {
	redsync *redsync.Redsync
	opts    LockOptions
	logger  *zap.Logger
}

// NewWalletLocker creates a WalletLocker on client
func NewWalletLocker(client redis.UniversalClient, opts LockOptions, logger *zap.Logger) *WalletLocker {
	return &WalletLocker{
		redsync: redsync.New(goredis.NewPool(client)),
		opts:    opts,
		logger:  logger,
	}
}

// WithWalletLocks acquires lock:wallet:<id> for every id not already held, in sorted order
func (l *WalletLocker) WithWalletLocks(ctx context.Context, ids []uuid.UUID, fn func(ctx context.Context) error) error {
	ordered := domain.LocksToAcquire(ctx, ids)
	mutexes := make([]*redsync.Mutex, 0, len(ordered))
	defer func() {
		for i := len(mutexes) - 1; i >= 0; i-- {
			if ok, err := mutexes[i].UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
				l.logger.Error("failed to release wallet lock",
					zap.String("lock_key", mutexes[i].Name()),
					zap.Bool("unlock_ok", ok),
					zap.Error(err),
				)
			}
		}
	}()

	for _, id := range ordered {
		key := walletLockPrefix + id.String()
		mutex := l.redsync.NewMutex(key,
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)
		if err := mutex.LockContext(ctx); err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		mutexes = append(mutexes, mutex)
	}

	stop := l.keepAlive(ctx, mutexes)
	defer stop()

	return fn(domain.WithHeldLocks(ctx, ordered))
}

// keepAlive extends mutexes on every tick until the returned stop func is called
func (l *WalletLocker) keepAlive(ctx context.Context, mutexes []*redsync.Mutex) func() {
	interval := l.opts.ExtendInterval
	if interval <= 0 {
		interval = l.opts.Expiry / 3
	}
	if len(mutexes) == 0 || interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				for _, mutex := range mutexes {
					if ok, err := mutex.ExtendContext(context.WithoutCancel(ctx)); !ok || err != nil {
						l.logger.Warn("failed to extend wallet lock",
							zap.String("lock_key", mutex.Name()),
							zap.Bool("extend_ok", ok),
							zap.Error(err),
						)
					}
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
