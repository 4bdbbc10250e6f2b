package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

type walletLock struct {
	ch   chan struct{}
	refs int
}

// WalletLocker is an in-process keyed mutex implementing domain.WalletLocker
type WalletLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*walletLock
}

// NewWalletLocker creates an in-process wallet locker
func NewWalletLocker() *WalletLocker {
	return &WalletLocker{locks: make(map[uuid.UUID]*walletLock)}
}

// WithWalletLocks acquires one lock per distinct id in sorted order, then runs fn
// Returns ctx.Err() if the context ends while waiting
func (l *WalletLocker) WithWalletLocks(ctx context.Context, ids []uuid.UUID, fn func(ctx context.Context) error) error {
	ordered := domain.LocksToAcquire(ctx, ids)
	held := make([]uuid.UUID, 0, len(ordered))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}()

	for _, id := range ordered {
		lock := l.acquireRef(id)
		select {
		case lock.ch <- struct{}{}:
			held = append(held, id)
		case <-ctx.Done():
			l.dropRef(id)
			return ctx.Err()
		}
	}

	return fn(domain.WithHeldLocks(ctx, held))
}

func (l *WalletLocker) acquireRef(id uuid.UUID) *walletLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &walletLock{ch: make(chan struct{}, 1)}
		l.locks[id] = lock
	}
	lock.refs++
	return lock
}

func (l *WalletLocker) dropRef(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock := l.locks[id]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *WalletLocker) release(id uuid.UUID) {
	l.mu.Lock()
	lock := l.locks[id]
	l.mu.Unlock()
	<-lock.ch
	l.dropRef(id)
}
