package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecurrencePattern governs how a scheduled payment's next execution date advances
type RecurrencePattern string

const (
	RecurrenceOnce      RecurrencePattern = "ONCE"
	RecurrenceDaily     RecurrencePattern = "DAILY"
	RecurrenceWeekly    RecurrencePattern = "WEEKLY"
	RecurrenceBiweekly  RecurrencePattern = "BIWEEKLY"
	RecurrenceMonthly   RecurrencePattern = "MONTHLY"
	RecurrenceQuarterly RecurrencePattern = "QUARTERLY"
	RecurrenceYearly    RecurrencePattern = "YEARLY"
)

// ParseRecurrencePattern normalizes and validates a pattern name
func ParseRecurrencePattern(s string) (RecurrencePattern, error) {
	p := RecurrencePattern(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case RecurrenceOnce, RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly,
		RecurrenceMonthly, RecurrenceQuarterly, RecurrenceYearly:
		return p, nil
	}
	return "", validationError("unknown recurrence pattern: %s", s)
}

// PaymentStatus represents the state of a scheduled payment
type PaymentStatus string

const (
	PaymentStatusActive    PaymentStatus = "ACTIVE"
	PaymentStatusPaused    PaymentStatus = "PAUSED"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are possible
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusCancelled
}

// ScheduledPayment represents a one-time or recurring transfer between two wallets.
// It holds wallet ids by reference only. Values are snapshots: every transition
// returns a new ScheduledPayment and leaves the receiver untouched.
//
// Dates (StartDate, EndDate, NextExecutionDate) are calendar dates at midnight UTC.
type ScheduledPayment struct {
	ID                  uuid.UUID
	SourceWalletID      uuid.UUID
	DestinationWalletID uuid.UUID
	Amount              Money
	Description         string
	Pattern             RecurrencePattern
	StartDate           time.Time
	EndDate             *time.Time // nil for open-ended payments
	NextExecutionDate   *time.Time // nil once COMPLETED or CANCELLED
	ExecutionCount      int
	MaxExecutions       int // 0 for unlimited
	Status              PaymentStatus
	CreatedAt           time.Time
	LastModifiedAt      time.Time
}

// DateOf truncates t to its calendar date in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateOneTime schedules a single payment on executionDate
// Returns a validation error if executionDate is before today
func CreateOneTime(sourceWalletID, destinationWalletID uuid.UUID, amount Money, description string, executionDate time.Time, now time.Time) (ScheduledPayment, error) {
	date := DateOf(executionDate)
	if date.Before(DateOf(now)) {
		return ScheduledPayment{}, validationError("execution date must not be in the past")
	}

	p := ScheduledPayment{
		ID:                  uuid.New(),
		SourceWalletID:      sourceWalletID,
		DestinationWalletID: destinationWalletID,
		Amount:              amount,
		Description:         description,
		Pattern:             RecurrenceOnce,
		StartDate:           date,
		NextExecutionDate:   datePtr(date),
		MaxExecutions:       1,
		Status:              PaymentStatusActive,
		CreatedAt:           now,
		LastModifiedAt:      now,
	}
	if err := p.Validate(); err != nil {
		return ScheduledPayment{}, err
	}
	return p, nil
}

// CreateRecurring schedules a repeating payment whose first execution is on startDate
// endDate may be nil; maxExecutions of 0 means unlimited
func CreateRecurring(sourceWalletID, destinationWalletID uuid.UUID, amount Money, description string, pattern RecurrencePattern, startDate time.Time, endDate *time.Time, maxExecutions int, now time.Time) (ScheduledPayment, error) {
	if pattern == RecurrenceOnce {
		return ScheduledPayment{}, validationError("use CreateOneTime for one-time payments")
	}

	start := DateOf(startDate)
	var end *time.Time
	if endDate != nil {
		end = datePtr(DateOf(*endDate))
	}

	p := ScheduledPayment{
		ID:                  uuid.New(),
		SourceWalletID:      sourceWalletID,
		DestinationWalletID: destinationWalletID,
		Amount:              amount,
		Description:         description,
		Pattern:             pattern,
		StartDate:           start,
		EndDate:             end,
		NextExecutionDate:   datePtr(start),
		MaxExecutions:       maxExecutions,
		Status:              PaymentStatusActive,
		CreatedAt:           now,
		LastModifiedAt:      now,
	}
	if err := p.Validate(); err != nil {
		return ScheduledPayment{}, err
	}
	return p, nil
}

// Validate ensures the payment adheres to domain rules
func (p ScheduledPayment) Validate() error {
	if p.SourceWalletID == uuid.Nil || p.DestinationWalletID == uuid.Nil {
		return validationError("scheduled payment must reference a source and a destination wallet")
	}
	if p.SourceWalletID == p.DestinationWalletID {
		return validationError("source and destination wallets must be different")
	}
	if !p.Amount.IsPositive() {
		return validationError("scheduled payment amount must be positive")
	}
	if _, err := ParseRecurrencePattern(string(p.Pattern)); err != nil {
		return err
	}
	if p.MaxExecutions < 0 {
		return validationError("max executions must not be negative")
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return validationError("end date must not be before start date")
	}
	return nil
}

// CalculateNextExecutionDate advances date by one recurrence step.
// Month-based patterns clamp to the last day of the target month.
// Returns nil for ONCE.
func (p ScheduledPayment) CalculateNextExecutionDate(date time.Time) *time.Time {
	var next time.Time
	switch p.Pattern {
	case RecurrenceDaily:
		next = date.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		next = date.AddDate(0, 0, 7)
	case RecurrenceBiweekly:
		next = date.AddDate(0, 0, 14)
	case RecurrenceMonthly:
		next = addMonths(date, 1)
	case RecurrenceQuarterly:
		next = addMonths(date, 3)
	case RecurrenceYearly:
		next = addMonths(date, 12)
	default:
		return nil
	}
	return &next
}

// IsDue reports whether the payment is ACTIVE and its next execution date is on or before today
func (p ScheduledPayment) IsDue(today time.Time) bool {
	if p.Status != PaymentStatusActive || p.NextExecutionDate == nil {
		return false
	}
	return !p.NextExecutionDate.After(DateOf(today))
}

// IsCompleted reports whether the payment has reached an end condition
func (p ScheduledPayment) IsCompleted(today time.Time) bool {
	if p.Pattern == RecurrenceOnce && p.ExecutionCount >= 1 {
		return true
	}
	if p.MaxExecutions > 0 && p.ExecutionCount >= p.MaxExecutions {
		return true
	}
	if p.EndDate != nil && DateOf(today).After(*p.EndDate) {
		return true
	}
	return false
}

// WithExecution records one successful execution
// Logic:
//  1. Increment ExecutionCount
//  2. Compute the next date from the current NextExecutionDate
//  3. COMPLETED (next date cleared) if the incremented payment IsCompleted today,
//     the pattern is ONCE, or the computed date is strictly after EndDate
//  4. Otherwise keep the status and move NextExecutionDate forward one step
func (p ScheduledPayment) WithExecution(now time.Time) ScheduledPayment {
	next := p.clone()
	next.ExecutionCount = p.ExecutionCount + 1
	next.LastModifiedAt = now

	var nextDate *time.Time
	if p.NextExecutionDate != nil {
		nextDate = p.CalculateNextExecutionDate(*p.NextExecutionDate)
	}

	switch {
	case next.IsCompleted(now) || p.Pattern == RecurrenceOnce || nextDate == nil:
		next.Status = PaymentStatusCompleted
		next.NextExecutionDate = nil
	case p.EndDate != nil && nextDate.After(*p.EndDate):
		next.Status = PaymentStatusCompleted
		next.NextExecutionDate = nil
	default:
		next.NextExecutionDate = nextDate
	}
	return next
}

// Pause moves ACTIVE to PAUSED
func (p ScheduledPayment) Pause(now time.Time) (ScheduledPayment, error) {
	if p.Status != PaymentStatusActive {
		return ScheduledPayment{}, &IllegalStateTransitionError{From: p.Status, Action: "pause"}
	}
	return p.withStatus(PaymentStatusPaused, now), nil
}

// Resume moves PAUSED to ACTIVE
func (p ScheduledPayment) Resume(now time.Time) (ScheduledPayment, error) {
	if p.Status != PaymentStatusPaused {
		return ScheduledPayment{}, &IllegalStateTransitionError{From: p.Status, Action: "resume"}
	}
	return p.withStatus(PaymentStatusActive, now), nil
}

// Cancel moves any non-terminal status to CANCELLED and clears the next execution date
func (p ScheduledPayment) Cancel(now time.Time) (ScheduledPayment, error) {
	if p.Status.IsTerminal() {
		return ScheduledPayment{}, &IllegalStateTransitionError{From: p.Status, Action: "cancel"}
	}
	next := p.withStatus(PaymentStatusCancelled, now)
	next.NextExecutionDate = nil
	return next, nil
}

// MarkFailed moves ACTIVE to FAILED. The next execution date is kept for inspection.
func (p ScheduledPayment) MarkFailed(now time.Time) (ScheduledPayment, error) {
	if p.Status != PaymentStatusActive {
		return ScheduledPayment{}, &IllegalStateTransitionError{From: p.Status, Action: "fail"}
	}
	return p.withStatus(PaymentStatusFailed, now), nil
}

func (p ScheduledPayment) withStatus(status PaymentStatus, now time.Time) ScheduledPayment {
	next := p.clone()
	next.Status = status
	next.LastModifiedAt = now
	return next
}

// clone copies the value and detaches the date pointers from the receiver
func (p ScheduledPayment) clone() ScheduledPayment {
	c := p
	if p.EndDate != nil {
		c.EndDate = datePtr(*p.EndDate)
	}
	if p.NextExecutionDate != nil {
		c.NextExecutionDate = datePtr(*p.NextExecutionDate)
	}
	return c
}

func datePtr(t time.Time) *time.Time {
	return &t
}

// addMonths adds calendar months, clamping the day to the end of the target month
// (Jan 31 + 1 month is Feb 28 or Feb 29, never Mar 2 or Mar 3).
func addMonths(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, date.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}
