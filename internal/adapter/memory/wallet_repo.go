package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// walletRepository implements domain.WalletRepository
type walletRepository struct {
	store *Store
}

// NewWalletRepository creates a new in-memory wallet repository
func NewWalletRepository(store *Store) domain.WalletRepository {
	return &walletRepository{store: store}
}

// LoadWallet reconstitutes a wallet from a copy of the stored ledger
func (r *walletRepository) LoadWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	rec, ok := r.lookup(ctx, id)
	if !ok {
		return nil, domain.NewNotFoundError("wallet", id)
	}
	return domain.ReconstituteWallet(id, rec.currency, rec.entries, rec.createdAt)
}

// SaveWallet stores the wallet, appending only entries whose id is not stored yet
func (r *walletRepository) SaveWallet(ctx context.Context, wallet *domain.Wallet) error {
	existing, _ := r.lookup(ctx, wallet.ID())

	known := make(map[uuid.UUID]struct{}, len(existing.entries))
	merged := make([]domain.LedgerEntry, 0, len(existing.entries))
	for _, e := range existing.entries {
		known[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range wallet.Entries() {
		if _, ok := known[e.ID]; ok {
			continue
		}
		known[e.ID] = struct{}{}
		merged = append(merged, e)
	}

	rec := walletRecord{currency: wallet.Currency(), entries: merged, createdAt: wallet.CreatedAt()}
	if tx := txFromContext(ctx); tx != nil {
		tx.wallets[wallet.ID()] = rec
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.wallets[wallet.ID()] = rec
	return nil
}

func (r *walletRepository) lookup(ctx context.Context, id uuid.UUID) (walletRecord, bool) {
	if tx := txFromContext(ctx); tx != nil {
		if rec, ok := tx.wallets[id]; ok {
			return copyRecord(rec), true
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rec, ok := r.store.wallets[id]
	if !ok {
		return walletRecord{}, false
	}
	return copyRecord(rec), true
}

func copyRecord(rec walletRecord) walletRecord {
	entries := make([]domain.LedgerEntry, len(rec.entries))
	copy(entries, rec.entries)
	rec.entries = entries
	return rec
}
