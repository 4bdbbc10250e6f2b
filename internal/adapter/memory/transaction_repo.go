package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new in-memory transaction repository
func NewTransactionRepository(store *Store) domain.TransactionRepository {
	return &transactionRepository{store: store}
}

func (r *transactionRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if pending := txFromContext(ctx); pending != nil {
		copied := *tx
		pending.transactions = append(pending.transactions, &copied)
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.putTransaction(tx)
	return nil
}

func (r *transactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if pending := txFromContext(ctx); pending != nil {
		for _, tx := range pending.transactions {
			if tx.ID == id {
				copied := *tx
				return &copied, nil
			}
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.NewNotFoundError("transaction", id)
	}
	copied := *tx
	return &copied, nil
}

// ListTransactions returns committed transactions newest first
func (r *transactionRepository) ListTransactions(ctx context.Context, limit, offset int, walletID *uuid.UUID) ([]*domain.Transaction, error) {
	matching := r.matching(walletID)
	if offset >= len(matching) {
		return []*domain.Transaction{}, nil
	}
	end := len(matching)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matching[offset:end], nil
}

func (r *transactionRepository) CountTransactions(ctx context.Context, walletID *uuid.UUID) (int, error) {
	return len(r.matching(walletID)), nil
}

func (r *transactionRepository) matching(walletID *uuid.UUID) []*domain.Transaction {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.Transaction, 0, len(r.store.txOrder))
	for i := len(r.store.txOrder) - 1; i >= 0; i-- {
		tx := r.store.transactions[r.store.txOrder[i]]
		if walletID != nil && !tx.Involves(*walletID) {
			continue
		}
		copied := *tx
		out = append(out, &copied)
	}
	return out
}
