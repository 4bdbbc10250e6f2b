package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Error kinds exposed by the core. Every concrete error returned by the domain
// matches exactly one of these through errors.Is.
var (
	ErrValidation             = errors.New("validation failed")
	ErrCurrencyMismatch       = errors.New("currency mismatch")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrStaleRate              = errors.New("exchange rate is stale")
	ErrIllegalStateTransition = errors.New("illegal state transition")
	ErrNotFound               = errors.New("not found")
)

// validationError wraps ErrValidation with a formatted message
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InsufficientBalanceError is returned when a debit exceeds the computed balance
type InsufficientBalanceError struct {
	WalletID  uuid.UUID
	Requested Money
	Available Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance in wallet %s: requested %s, available %s",
		e.WalletID, e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// CurrencyMismatchError is returned when two currencies that must agree do not
type CurrencyMismatchError struct {
	Expected Currency
	Actual   Currency
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: expected %s, got %s", e.Expected, e.Actual)
}

func (e *CurrencyMismatchError) Is(target error) bool {
	return target == ErrCurrencyMismatch
}

// StaleRateError is returned when an exchange rate is older than the allowed window
type StaleRateError struct {
	Source    Currency
	Target    Currency
	Timestamp time.Time
	MaxAge    time.Duration
}

func (e *StaleRateError) Error() string {
	return fmt.Sprintf("exchange rate %s/%s from %s is older than %s",
		e.Source, e.Target, e.Timestamp.UTC().Format(time.RFC3339), e.MaxAge)
}

func (e *StaleRateError) Is(target error) bool {
	return target == ErrStaleRate
}

// IllegalStateTransitionError is returned when a scheduled payment cannot perform an action from its current status
type IllegalStateTransitionError struct {
	From   PaymentStatus
	Action string
}

func (e *IllegalStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s scheduled payment in status %s", e.Action, e.From)
}

func (e *IllegalStateTransitionError) Is(target error) bool {
	return target == ErrIllegalStateTransition
}

// NotFoundError is returned by load ports when a resource does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError builds a NotFoundError for the given resource and id
func NewNotFoundError(resource string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id.String()}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
