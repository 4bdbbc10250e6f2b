package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType represents the direction of a ledger entry
type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
)

// LedgerEntry represents a single immutable movement of value on a wallet.
// Entries are identified by ID; two entries with the same ID are the same entry.
type LedgerEntry struct {
	ID            uuid.UUID
	WalletID      uuid.UUID
	TransactionID uuid.UUID
	Type          EntryType
	Amount        Money // always positive; Type gives the direction
	Description   string
	CreatedAt     time.Time
}

// NewCreditEntry creates a CREDIT entry. A blank description becomes "Credit".
func NewCreditEntry(walletID, transactionID uuid.UUID, amount Money, description string, now time.Time) LedgerEntry {
	return newLedgerEntry(walletID, transactionID, EntryTypeCredit, amount, description, now)
}

// NewDebitEntry creates a DEBIT entry. A blank description becomes "Debit".
func NewDebitEntry(walletID, transactionID uuid.UUID, amount Money, description string, now time.Time) LedgerEntry {
	return newLedgerEntry(walletID, transactionID, EntryTypeDebit, amount, description, now)
}

func newLedgerEntry(walletID, transactionID uuid.UUID, entryType EntryType, amount Money, description string, now time.Time) LedgerEntry {
	if strings.TrimSpace(description) == "" {
		if entryType == EntryTypeCredit {
			description = "Credit"
		} else {
			description = "Debit"
		}
	}
	return LedgerEntry{
		ID:            uuid.New(),
		WalletID:      walletID,
		TransactionID: transactionID,
		Type:          entryType,
		Amount:        amount,
		Description:   description,
		CreatedAt:     now,
	}
}

func (e LedgerEntry) IsCredit() bool {
	return e.Type == EntryTypeCredit
}

func (e LedgerEntry) IsDebit() bool {
	return e.Type == EntryTypeDebit
}

// SignedAmount returns the amount with debits negated
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.IsDebit() {
		return e.Amount.Amount().Neg()
	}
	return e.Amount.Amount()
}

// Validate ensures a reconstituted entry adheres to domain rules
func (e LedgerEntry) Validate() error {
	if e.ID == uuid.Nil {
		return validationError("ledger entry id is required")
	}
	if e.Type != EntryTypeCredit && e.Type != EntryTypeDebit {
		return validationError("entry type must be CREDIT or DEBIT")
	}
	if !e.Amount.IsPositive() {
		return validationError("entry amount must be positive (absolute value)")
	}
	return nil
}
