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

// scheduledPaymentRepository implements domain.ScheduledPaymentRepository
type scheduledPaymentRepository struct {
	db *DB
}

// NewScheduledPaymentRepository creates a new scheduled payment repository
func NewScheduledPaymentRepository(db *DB) domain.ScheduledPaymentRepository {
	return &scheduledPaymentRepository{db: db}
}

const paymentColumns = `id, source_wallet_id, destination_wallet_id, amount, currency, description, pattern,
	start_date, end_date, next_execution_date, execution_count, max_executions, status, created_at, last_modified_at`

// Save inserts the payment or replaces every mutable column of an existing one
func (r *scheduledPaymentRepository) Save(ctx context.Context, p domain.ScheduledPayment) error {
	query := `
		INSERT INTO scheduled_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			description = EXCLUDED.description,
			end_date = EXCLUDED.end_date,
			next_execution_date = EXCLUDED.next_execution_date,
			execution_count = EXCLUDED.execution_count,
			max_executions = EXCLUDED.max_executions,
			status = EXCLUDED.status,
			last_modified_at = EXCLUDED.last_modified_at
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		p.ID,
		p.SourceWalletID,
		p.DestinationWalletID,
		p.Amount.Amount().StringFixed(domain.MoneyScale),
		p.Amount.Currency().Code(),
		p.Description,
		string(p.Pattern),
		p.StartDate,
		nullableDate(p.EndDate),
		nullableDate(p.NextExecutionDate),
		p.ExecutionCount,
		p.MaxExecutions,
		string(p.Status),
		p.CreatedAt,
		p.LastModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save scheduled payment: %w", err)
	}
	return nil
}

// FindByID retrieves a scheduled payment by its ID
// Inside a transaction the row is locked FOR UPDATE until commit
func (r *scheduledPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.ScheduledPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM scheduled_payments WHERE id = $1`
	if inTransaction(ctx) {
		query += " FOR UPDATE"
	}

	p, err := scanPayment(r.db.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScheduledPayment{}, domain.NewNotFoundError("scheduled payment", id)
		}
		return domain.ScheduledPayment{}, fmt.Errorf("failed to get scheduled payment by ID: %w", err)
	}
	return p, nil
}

func (r *scheduledPaymentRepository) FindBySourceWalletID(ctx context.Context, walletID uuid.UUID) ([]domain.ScheduledPayment, error) {
	return r.query(ctx, `WHERE source_wallet_id = $1`, walletID)
}

// FindDuePayments lists ACTIVE payments whose next execution date is on or before date
func (r *scheduledPaymentRepository) FindDuePayments(ctx context.Context, date time.Time) ([]domain.ScheduledPayment, error) {
	return r.query(ctx, `WHERE status = $1 AND next_execution_date <= $2`,
		string(domain.PaymentStatusActive), domain.DateOf(date))
}

func (r *scheduledPaymentRepository) FindByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.ScheduledPayment, error) {
	return r.query(ctx, `WHERE status = $1`, string(status))
}

// FindUpcomingPayments lists ACTIVE payments due in (today, today+daysAhead]
func (r *scheduledPaymentRepository) FindUpcomingPayments(ctx context.Context, today time.Time, daysAhead int) ([]domain.ScheduledPayment, error) {
	from := domain.DateOf(today)
	return r.query(ctx, `WHERE status = $1 AND next_execution_date > $2 AND next_execution_date <= $3`,
		string(domain.PaymentStatusActive), from, from.AddDate(0, 0, daysAhead))
}

func (r *scheduledPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM scheduled_payments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete scheduled payment: %w", err)
	}
	return nil
}

func (r *scheduledPaymentRepository) query(ctx context.Context, where string, args ...any) ([]domain.ScheduledPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM scheduled_payments ` + where + ` ORDER BY created_at, id`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.ScheduledPayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scheduled payments: %w", err)
	}
	return payments, nil
}

func scanPayment(row rowScanner) (domain.ScheduledPayment, error) {
	var p domain.ScheduledPayment
	var amountStr, code, pattern, status string
	var endDate, nextDate sql.NullTime
	if err := row.Scan(
		&p.ID,
		&p.SourceWalletID,
		&p.DestinationWalletID,
		&amountStr,
		&code,
		&p.Description,
		&pattern,
		&p.StartDate,
		&endDate,
		&nextDate,
		&p.ExecutionCount,
		&p.MaxExecutions,
		&status,
		&p.CreatedAt,
		&p.LastModifiedAt,
	); err != nil {
		return domain.ScheduledPayment{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return domain.ScheduledPayment{}, fmt.Errorf("failed to parse amount: %w", err)
	}
	money, err := domain.MoneyOfCode(amount, code)
	if err != nil {
		return domain.ScheduledPayment{}, fmt.Errorf("failed to parse amount: %w", err)
	}

	p.Amount = money
	p.Pattern = domain.RecurrencePattern(pattern)
	p.Status = domain.PaymentStatus(status)
	p.StartDate = domain.DateOf(p.StartDate)
	p.EndDate = datePointer(endDate)
	p.NextExecutionDate = datePointer(nextDate)
	p.CreatedAt = p.CreatedAt.UTC()
	p.LastModifiedAt = p.LastModifiedAt.UTC()
	return p, nil
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.DateOf(*t)
}

func datePointer(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	d := domain.DateOf(t.Time)
	return &d
}
