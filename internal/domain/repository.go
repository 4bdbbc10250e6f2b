package domain

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletRepository defines the interface for wallet persistence operations
type WalletRepository interface {
	// LoadWallet retrieves a wallet with its full ledger
	// Returns an error matching ErrNotFound if the wallet does not exist
	LoadWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)

	// SaveWallet persists the wallet and any entries not yet stored
	// Must be idempotent: entries already stored (same id) are skipped
	SaveWallet(ctx context.Context, wallet *Wallet) error
}

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// SaveTransaction stores a new transaction
	SaveTransaction(ctx context.Context, tx *Transaction) error

	// GetTransaction retrieves a transaction by its ID
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListTransactions retrieves a paginated list of transactions, newest first
	// If walletID is nil, returns all transactions
	ListTransactions(ctx context.Context, limit, offset int, walletID *uuid.UUID) ([]*Transaction, error)

	// CountTransactions returns the number of transactions involving walletID (all when nil)
	CountTransactions(ctx context.Context, walletID *uuid.UUID) (int, error)
}

// ExchangeRateProvider defines the interface for exchange rate lookups
type ExchangeRateProvider interface {
	// GetExchangeRate returns the current rate from source to target
	// Returns an error matching ErrNotFound if no rate is known for the pair
	GetExchangeRate(ctx context.Context, source, target Currency) (ExchangeRate, error)

	// GetAllRates returns code -> rate for every currency quoted against base
	GetAllRates(ctx context.Context, base Currency) (map[string]decimal.Decimal, error)
}

// ScheduledPaymentRepository defines the interface for scheduled payment persistence operations
type ScheduledPaymentRepository interface {
	// Save inserts or replaces the payment
	Save(ctx context.Context, payment ScheduledPayment) error

	// FindByID retrieves a payment; returns an error matching ErrNotFound if absent
	FindByID(ctx context.Context, id uuid.UUID) (ScheduledPayment, error)

	// FindBySourceWalletID lists payments funded by walletID
	FindBySourceWalletID(ctx context.Context, walletID uuid.UUID) ([]ScheduledPayment, error)

	// FindDuePayments lists ACTIVE payments whose next execution date is on or before date
	FindDuePayments(ctx context.Context, date time.Time) ([]ScheduledPayment, error)

	// FindByStatus lists payments in the given status
	FindByStatus(ctx context.Context, status PaymentStatus) ([]ScheduledPayment, error)

	// FindUpcomingPayments lists ACTIVE payments due after today and within daysAhead days
	FindUpcomingPayments(ctx context.Context, today time.Time, daysAhead int) ([]ScheduledPayment, error)

	// Delete removes a payment
	Delete(ctx context.Context, id uuid.UUID) error
}

// Transactor runs fn inside a persistence transaction boundary.
// Repository calls made with the ctx passed to fn join the transaction;
// returning an error from fn rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// WalletLocker guarantees at most one in-flight mutation per wallet id
type WalletLocker interface {
	// WithWalletLocks acquires the locks for every id (in sorted order), runs fn, then releases them.
	// Ids already held by ctx (see HeldLocks) are not acquired again.
	WithWalletLocks(ctx context.Context, ids []uuid.UUID, fn func(ctx context.Context) error) error
}

type heldLocksKey struct{}

// HeldLocks returns the wallet ids locked by an enclosing WithWalletLocks call
func HeldLocks(ctx context.Context) map[uuid.UUID]struct{} {
	held, _ := ctx.Value(heldLocksKey{}).(map[uuid.UUID]struct{})
	return held
}

// WithHeldLocks returns a ctx recording ids as held in addition to those already held
func WithHeldLocks(ctx context.Context, ids []uuid.UUID) context.Context {
	parent := HeldLocks(ctx)
	held := make(map[uuid.UUID]struct{}, len(parent)+len(ids))
	for id := range parent {
		held[id] = struct{}{}
	}
	for _, id := range ids {
		held[id] = struct{}{}
	}
	return context.WithValue(ctx, heldLocksKey{}, held)
}

// LocksToAcquire returns LockOrder(ids) minus the ids ctx already holds
func LocksToAcquire(ctx context.Context, ids []uuid.UUID) []uuid.UUID {
	held := HeldLocks(ctx)
	ordered := LockOrder(ids)
	if len(held) == 0 {
		return ordered
	}
	out := ordered[:0]
	for _, id := range ordered {
		if _, ok := held[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// LockOrder returns ids de-duplicated and sorted, the order in which lockers acquire them
func LockOrder(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	ordered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})
	return ordered
}

// EventPublisher hands events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Notification is a message addressed to the owner of a wallet
type Notification struct {
	Kind     string
	WalletID uuid.UUID
	Subject  string
	Body     string
}

// Notifier delivers notifications to downstream systems
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
