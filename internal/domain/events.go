package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event names used as routing keys by publishers
const (
	EventWalletCreated           = "wallet.created"
	EventMoneyDeposited          = "wallet.money_deposited"
	EventMoneyWithdrawn          = "wallet.money_withdrawn"
	EventMoneyTransferred        = "wallet.money_transferred"
	EventScheduledPaymentRun     = "scheduled_payment.executed"
	EventScheduledPaymentFailure = "scheduled_payment.failed"
)

// Event is a fact produced by a use case after a mutation succeeded.
// Events are returned alongside results and dispatched by the caller, never fired from aggregates.
type Event interface {
	EventName() string
	EventID() uuid.UUID
	OccurredAt() time.Time
}

// EventHeader carries the fields every event shares
type EventHeader struct {
	ID   uuid.UUID `json:"event_id"`
	Name string    `json:"event_name"`
	At   time.Time `json:"occurred_at"`
}

func newEventHeader(name string, now time.Time) EventHeader {
	return EventHeader{ID: uuid.New(), Name: name, At: now}
}

func (h EventHeader) EventName() string     { return h.Name }
func (h EventHeader) EventID() uuid.UUID    { return h.ID }
func (h EventHeader) OccurredAt() time.Time { return h.At }

type WalletCreated struct {
	EventHeader
	WalletID uuid.UUID `json:"wallet_id"`
	Currency string    `json:"currency"`
}

func NewWalletCreated(w *Wallet, now time.Time) WalletCreated {
	return WalletCreated{
		EventHeader: newEventHeader(EventWalletCreated, now),
		WalletID:    w.ID(),
		Currency:    w.Currency().Code(),
	}
}

type MoneyDeposited struct {
	EventHeader
	WalletID      uuid.UUID `json:"wallet_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        string    `json:"amount"`
	NewBalance    string    `json:"new_balance"`
	Description   string    `json:"description"`
}

func NewMoneyDeposited(w *Wallet, entry LedgerEntry, now time.Time) MoneyDeposited {
	return MoneyDeposited{
		EventHeader:   newEventHeader(EventMoneyDeposited, now),
		WalletID:      w.ID(),
		TransactionID: entry.TransactionID,
		Amount:        entry.Amount.String(),
		NewBalance:    w.CalculateBalance().String(),
		Description:   entry.Description,
	}
}

type MoneyWithdrawn struct {
	EventHeader
	WalletID      uuid.UUID `json:"wallet_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        string    `json:"amount"`
	NewBalance    string    `json:"new_balance"`
	Description   string    `json:"description"`
}

func NewMoneyWithdrawn(w *Wallet, entry LedgerEntry, now time.Time) MoneyWithdrawn {
	return MoneyWithdrawn{
		EventHeader:   newEventHeader(EventMoneyWithdrawn, now),
		WalletID:      w.ID(),
		TransactionID: entry.TransactionID,
		Amount:        entry.Amount.String(),
		NewBalance:    w.CalculateBalance().String(),
		Description:   entry.Description,
	}
}

// MoneyTransferred covers same-currency and cross-currency transfers.
// ConvertedAmount equals Amount when CrossCurrency is false.
type MoneyTransferred struct {
	EventHeader
	TransactionID       uuid.UUID `json:"transaction_id"`
	SourceWalletID      uuid.UUID `json:"source_wallet_id"`
	DestinationWalletID uuid.UUID `json:"destination_wallet_id"`
	Amount              string    `json:"amount"`
	ConvertedAmount     string    `json:"converted_amount"`
	CrossCurrency       bool      `json:"cross_currency"`
}

func NewMoneyTransferred(tx *Transaction, converted Money, now time.Time) MoneyTransferred {
	return MoneyTransferred{
		EventHeader:         newEventHeader(EventMoneyTransferred, now),
		TransactionID:       tx.ID,
		SourceWalletID:      tx.SourceWalletID,
		DestinationWalletID: tx.DestinationWalletID,
		Amount:              tx.Amount.String(),
		ConvertedAmount:     converted.String(),
		CrossCurrency:       converted.Currency() != tx.Amount.Currency(),
	}
}

type ScheduledPaymentExecuted struct {
	EventHeader
	PaymentID      uuid.UUID `json:"payment_id"`
	TransactionID  uuid.UUID `json:"transaction_id"`
	ExecutionCount int       `json:"execution_count"`
	Status         string    `json:"status"`
}

func NewScheduledPaymentExecuted(p ScheduledPayment, transactionID uuid.UUID, now time.Time) ScheduledPaymentExecuted {
	return ScheduledPaymentExecuted{
		EventHeader:    newEventHeader(EventScheduledPaymentRun, now),
		PaymentID:      p.ID,
		TransactionID:  transactionID,
		ExecutionCount: p.ExecutionCount,
		Status:         string(p.Status),
	}
}

type ScheduledPaymentFailed struct {
	EventHeader
	PaymentID uuid.UUID `json:"payment_id"`
	Reason    string    `json:"reason"`
	Parked    bool      `json:"parked"`
}

func NewScheduledPaymentFailed(p ScheduledPayment, reason error, parked bool, now time.Time) ScheduledPaymentFailed {
	return ScheduledPaymentFailed{
		EventHeader: newEventHeader(EventScheduledPaymentFailure, now),
		PaymentID:   p.ID,
		Reason:      reason.Error(),
		Parked:      parked,
	}
}
