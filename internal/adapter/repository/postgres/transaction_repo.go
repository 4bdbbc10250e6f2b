package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, source_wallet_id, destination_wallet_id, amount, currency, description, status, created_at`

// SaveTransaction inserts a transaction header
func (r *transactionRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		tx.ID,
		tx.SourceWalletID,
		tx.DestinationWalletID,
		tx.Amount.Amount().StringFixed(domain.MoneyScale),
		tx.Amount.Currency().Code(),
		tx.Description,
		string(tx.Status),
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by its ID
func (r *transactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("transaction", id)
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}
	return tx, nil
}

// ListTransactions retrieves a paginated list of transactions, newest first
// If walletID is provided, only transactions where the wallet is source or destination are returned
func (r *transactionRepository) ListTransactions(ctx context.Context, limit, offset int, walletID *uuid.UUID) ([]*domain.Transaction, error) {
	var rows *sql.Rows
	var err error

	q := r.db.conn(ctx)
	if walletID != nil {
		query := `
			SELECT ` + transactionColumns + `
			FROM transactions
			WHERE source_wallet_id = $1 OR destination_wallet_id = $1
			ORDER BY created_at DESC, id
			LIMIT $2 OFFSET $3
		`
		rows, err = q.QueryContext(ctx, query, *walletID, limit, offset)
	} else {
		query := `
			SELECT ` + transactionColumns + `
			FROM transactions
			ORDER BY created_at DESC, id
			LIMIT $1 OFFSET $2
		`
		rows, err = q.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// CountTransactions counts the transactions involving walletID, or all of them when nil
func (r *transactionRepository) CountTransactions(ctx context.Context, walletID *uuid.UUID) (int, error) {
	var count int
	var err error
	q := r.db.conn(ctx)
	if walletID != nil {
		err = q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE source_wallet_id = $1 OR destination_wallet_id = $1`,
			*walletID,
		).Scan(&count)
	} else {
		err = q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountStr, code, status string
	if err := row.Scan(
		&tx.ID,
		&tx.SourceWalletID,
		&tx.DestinationWalletID,
		&amountStr,
		&code,
		&tx.Description,
		&status,
		&tx.CreatedAt,
	); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	money, err := domain.MoneyOfCode(amount, code)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	tx.Amount = money
	tx.Status = domain.TransactionStatus(status)
	tx.CreatedAt = tx.CreatedAt.UTC()
	return &tx, nil
}
