package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the lifecycle status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// Transaction represents a movement of money between two wallets.
// Ledger entries reference it through TransactionID.
type Transaction struct {
	ID                  uuid.UUID
	SourceWalletID      uuid.UUID
	DestinationWalletID uuid.UUID
	Amount              Money
	Description         string
	Status              TransactionStatus
	CreatedAt           time.Time
}

// NewTransfer creates a COMPLETED transaction between two distinct wallets
// A blank description becomes "Transfer"
func NewTransfer(sourceWalletID, destinationWalletID uuid.UUID, amount Money, description string, now time.Time) (*Transaction, error) {
	if strings.TrimSpace(description) == "" {
		description = "Transfer"
	}

	tx := &Transaction{
		ID:                  uuid.New(),
		SourceWalletID:      sourceWalletID,
		DestinationWalletID: destinationWalletID,
		Amount:              amount,
		Description:         description,
		Status:              TransactionStatusCompleted,
		CreatedAt:           now,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	if t.SourceWalletID == uuid.Nil || t.DestinationWalletID == uuid.Nil {
		return validationError("transaction must reference a source and a destination wallet")
	}
	if t.SourceWalletID == t.DestinationWalletID {
		return validationError("source and destination wallets must be different")
	}
	if !t.Amount.IsPositive() {
		return validationError("transaction amount must be positive")
	}
	switch t.Status {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusReversed:
	default:
		return validationError("invalid transaction status: %s", t.Status)
	}
	return nil
}

// Involves reports whether walletID is the source or the destination
func (t *Transaction) Involves(walletID uuid.UUID) bool {
	return t.SourceWalletID == walletID || t.DestinationWalletID == walletID
}
