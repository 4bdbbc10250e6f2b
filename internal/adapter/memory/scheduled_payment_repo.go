package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// scheduledPaymentRepository implements domain.ScheduledPaymentRepository
type scheduledPaymentRepository struct {
	store *Store
}

// NewScheduledPaymentRepository creates a new in-memory scheduled payment repository
func NewScheduledPaymentRepository(store *Store) domain.ScheduledPaymentRepository {
	return &scheduledPaymentRepository{store: store}
}

func (r *scheduledPaymentRepository) Save(ctx context.Context, payment domain.ScheduledPayment) error {
	if tx := txFromContext(ctx); tx != nil {
		tx.payments[payment.ID] = payment
		delete(tx.deleted, payment.ID)
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.payments[payment.ID] = payment
	return nil
}

func (r *scheduledPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.ScheduledPayment, error) {
	for _, p := range r.snapshot(ctx) {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.ScheduledPayment{}, domain.NewNotFoundError("scheduled payment", id)
}

func (r *scheduledPaymentRepository) FindBySourceWalletID(ctx context.Context, walletID uuid.UUID) ([]domain.ScheduledPayment, error) {
	return r.filter(ctx, func(p domain.ScheduledPayment) bool {
		return p.SourceWalletID == walletID
	}), nil
}

func (r *scheduledPaymentRepository) FindDuePayments(ctx context.Context, date time.Time) ([]domain.ScheduledPayment, error) {
	return r.filter(ctx, func(p domain.ScheduledPayment) bool {
		return p.IsDue(date)
	}), nil
}

func (r *scheduledPaymentRepository) FindByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.ScheduledPayment, error) {
	return r.filter(ctx, func(p domain.ScheduledPayment) bool {
		return p.Status == status
	}), nil
}

// FindUpcomingPayments lists ACTIVE payments with a next execution date in (today, today+daysAhead]
func (r *scheduledPaymentRepository) FindUpcomingPayments(ctx context.Context, today time.Time, daysAhead int) ([]domain.ScheduledPayment, error) {
	from := domain.DateOf(today)
	until := from.AddDate(0, 0, daysAhead)
	return r.filter(ctx, func(p domain.ScheduledPayment) bool {
		if p.Status != domain.PaymentStatusActive || p.NextExecutionDate == nil {
			return false
		}
		next := *p.NextExecutionDate
		return next.After(from) && !next.After(until)
	}), nil
}

func (r *scheduledPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if tx := txFromContext(ctx); tx != nil {
		delete(tx.payments, id)
		tx.deleted[id] = struct{}{}
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.payments, id)
	return nil
}

func (r *scheduledPaymentRepository) filter(ctx context.Context, keep func(domain.ScheduledPayment) bool) []domain.ScheduledPayment {
	out := make([]domain.ScheduledPayment, 0)
	for _, p := range r.snapshot(ctx) {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// snapshot merges committed payments with the pending writes of the ctx transaction, ordered by creation time
func (r *scheduledPaymentRepository) snapshot(ctx context.Context) []domain.ScheduledPayment {
	r.store.mu.RLock()
	merged := make(map[uuid.UUID]domain.ScheduledPayment, len(r.store.payments))
	for id, p := range r.store.payments {
		merged[id] = p
	}
	r.store.mu.RUnlock()

	if tx := txFromContext(ctx); tx != nil {
		for id := range tx.deleted {
			delete(merged, id)
		}
		for id, p := range tx.payments {
			merged[id] = p
		}
	}

	out := make([]domain.ScheduledPayment, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
