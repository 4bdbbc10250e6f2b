package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

type walletRecord struct {
	currency  domain.Currency
	entries   []domain.LedgerEntry
	createdAt time.Time
}

// Store holds all in-memory state. Repositories built on the same Store share it,
// and Transactor buffers their writes until commit.
type Store struct {
	mu           sync.RWMutex
	wallets      map[uuid.UUID]walletRecord
	transactions map[uuid.UUID]*domain.Transaction
	txOrder      []uuid.UUID
	payments     map[uuid.UUID]domain.ScheduledPayment
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		wallets:      make(map[uuid.UUID]walletRecord),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		payments:     make(map[uuid.UUID]domain.ScheduledPayment),
	}
}

// pendingTx is the write buffer of one WithinTransaction call
type pendingTx struct {
	wallets      map[uuid.UUID]walletRecord
	transactions []*domain.Transaction
	payments     map[uuid.UUID]domain.ScheduledPayment
	deleted      map[uuid.UUID]struct{}
}

type txKey struct{}

func txFromContext(ctx context.Context) *pendingTx {
	tx, _ := ctx.Value(txKey{}).(*pendingTx)
	return tx
}

// transactor implements domain.Transactor
type transactor struct {
	store *Store
}

// NewTransactor creates a Transactor whose writes become visible to other callers only on commit
func NewTransactor(store *Store) domain.Transactor {
	return &transactor{store: store}
}

// WithinTransaction buffers repository writes made with the derived ctx and applies them if fn succeeds
// A ctx that already carries a transaction joins it
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx := &pendingTx{
		wallets:  make(map[uuid.UUID]walletRecord),
		payments: make(map[uuid.UUID]domain.ScheduledPayment),
		deleted:  make(map[uuid.UUID]struct{}),
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, rec := range tx.wallets {
		t.store.wallets[id] = rec
	}
	for _, record := range tx.transactions {
		t.store.putTransaction(record)
	}
	for id, p := range tx.payments {
		t.store.payments[id] = p
	}
	for id := range tx.deleted {
		delete(t.store.payments, id)
	}
	return nil
}

func (s *Store) putTransaction(tx *domain.Transaction) {
	if _, ok := s.transactions[tx.ID]; !ok {
		s.txOrder = append(s.txOrder, tx.ID)
	}
	copied := *tx
	s.transactions[tx.ID] = &copied
}
