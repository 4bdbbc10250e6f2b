package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// walletRepository implements domain.WalletRepository
type walletRepository struct {
	db *DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *DB) domain.WalletRepository {
	return &walletRepository{db: db}
}

// LoadWallet retrieves a wallet and its ledger in insertion order
// Inside a transaction the wallet row is locked FOR UPDATE until commit
func (r *walletRepository) LoadWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `
		SELECT currency, created_at
		FROM wallets
		WHERE id = $1
	`
	if inTransaction(ctx) {
		query += " FOR UPDATE"
	}

	q := r.db.conn(ctx)
	var code string
	var createdAt time.Time
	if err := q.QueryRowContext(ctx, query, id).Scan(&code, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("wallet", id)
		}
		return nil, fmt.Errorf("failed to get wallet by ID: %w", err)
	}

	currency, err := domain.CurrencyOf(code)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet currency: %w", err)
	}

	entries, err := r.loadEntries(ctx, q, id)
	if err != nil {
		return nil, err
	}

	return domain.ReconstituteWallet(id, currency, entries, createdAt.UTC())
}

func (r *walletRepository) loadEntries(ctx context.Context, q querier, walletID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, transaction_id, entry_type, amount, currency, description, created_at
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY seq
	`

	rows, err := q.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		var entryType, amountStr, code string
		if err := rows.Scan(&entry.ID, &entry.TransactionID, &entryType, &amountStr, &code, &entry.Description, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse entry amount: %w", err)
		}
		money, err := domain.MoneyOfCode(amount, code)
		if err != nil {
			return nil, fmt.Errorf("failed to parse entry amount: %w", err)
		}

		entry.WalletID = walletID
		entry.Type = domain.EntryType(entryType)
		entry.Amount = money
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// SaveWallet inserts the wallet row and every entry not stored yet
func (r *walletRepository) SaveWallet(ctx context.Context, wallet *domain.Wallet) error {
	return r.db.WithinTransaction(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)

		insertWalletQuery := `
			INSERT INTO wallets (id, currency, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`
		if _, err := q.ExecContext(ctx, insertWalletQuery, wallet.ID(), wallet.Currency().Code(), wallet.CreatedAt()); err != nil {
			return fmt.Errorf("failed to insert wallet: %w", err)
		}

		insertEntryQuery := `
			INSERT INTO ledger_entries (id, wallet_id, transaction_id, entry_type, amount, currency, description, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`
		for _, entry := range wallet.Entries() {
			_, err := q.ExecContext(ctx, insertEntryQuery,
				entry.ID,
				wallet.ID(),
				entry.TransactionID,
				string(entry.Type),
				entry.Amount.Amount().StringFixed(domain.MoneyScale),
				entry.Amount.Currency().Code(),
				entry.Description,
				entry.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert ledger entry: %w", err)
			}
		}
		return nil
	})
}
