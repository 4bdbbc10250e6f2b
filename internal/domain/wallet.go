package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is the aggregate root owning an append-only ledger.
// There is no stored balance: CalculateBalance folds the entries on every call.
// Wallet performs no locking; callers serialize mutations per wallet id.
type Wallet struct {
	id        uuid.UUID
	currency  Currency
	entries   []LedgerEntry
	createdAt time.Time
}

// NewWallet creates an empty wallet in the given currency
func NewWallet(currency Currency, now time.Time) (*Wallet, error) {
	if currency.IsZero() {
		return nil, validationError("wallet currency is required")
	}
	return &Wallet{
		id:        uuid.New(),
		currency:  currency,
		entries:   make([]LedgerEntry, 0),
		createdAt: now,
	}, nil
}

// ReconstituteWallet rebuilds a wallet from persisted state
// Returns a validation error if any entry is malformed or belongs to another wallet or currency
func ReconstituteWallet(id uuid.UUID, currency Currency, entries []LedgerEntry, createdAt time.Time) (*Wallet, error) {
	if id == uuid.Nil {
		return nil, validationError("wallet id is required")
	}
	if currency.IsZero() {
		return nil, validationError("wallet currency is required")
	}

	copied := make([]LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return nil, err
		}
		if entry.WalletID != id {
			return nil, validationError("ledger entry %s belongs to wallet %s", entry.ID, entry.WalletID)
		}
		if entry.Amount.Currency() != currency {
			return nil, &CurrencyMismatchError{Expected: currency, Actual: entry.Amount.Currency()}
		}
		copied = append(copied, entry)
	}

	return &Wallet{id: id, currency: currency, entries: copied, createdAt: createdAt}, nil
}

func (w *Wallet) ID() uuid.UUID {
	return w.id
}

func (w *Wallet) Currency() Currency {
	return w.currency
}

func (w *Wallet) CreatedAt() time.Time {
	return w.createdAt
}

// Entries returns a copy of the ledger in append order
func (w *Wallet) Entries() []LedgerEntry {
	out := make([]LedgerEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// CalculateBalance folds the ledger: credits add, debits subtract, floored at zero
func (w *Wallet) CalculateBalance() Money {
	return Money{amount: foldBalance(w.entries).Round(MoneyScale), currency: w.currency}
}

// Credit appends a CREDIT entry. No balance check is performed.
func (w *Wallet) Credit(amount Money, transactionID uuid.UUID, description string, now time.Time) (LedgerEntry, error) {
	if err := w.validateAmount(amount); err != nil {
		return LedgerEntry{}, err
	}

	entry := NewCreditEntry(w.id, transactionID, amount, description, now)
	w.entries = append(w.entries, entry)
	return entry, nil
}

// Debit appends a DEBIT entry after checking the folded balance covers amount
// Returns *InsufficientBalanceError when it does not; the ledger is left untouched
func (w *Wallet) Debit(amount Money, transactionID uuid.UUID, description string, now time.Time) (LedgerEntry, error) {
	if err := w.validateAmount(amount); err != nil {
		return LedgerEntry{}, err
	}

	balance := w.CalculateBalance()
	if balance.Amount().LessThan(amount.Amount()) {
		return LedgerEntry{}, &InsufficientBalanceError{
			WalletID:  w.id,
			Requested: amount,
			Available: balance,
		}
	}

	entry := NewDebitEntry(w.id, transactionID, amount, description, now)
	w.entries = append(w.entries, entry)
	return entry, nil
}

// CanDebit reports whether a debit of amount would succeed
func (w *Wallet) CanDebit(amount Money) bool {
	if amount.Currency() != w.currency {
		return false
	}
	return w.CalculateBalance().Amount().GreaterThanOrEqual(amount.Amount())
}

func (w *Wallet) validateAmount(amount Money) error {
	if amount.Currency() != w.currency {
		return &CurrencyMismatchError{Expected: w.currency, Actual: amount.Currency()}
	}
	if !amount.IsPositive() {
		return validationError("amount must be positive")
	}
	return nil
}

// foldBalance is shared with reporting code that replays a subset of entries
func foldBalance(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.SignedAmount())
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// BalanceOf folds an arbitrary slice of entries the same way CalculateBalance does
func BalanceOf(currency Currency, entries []LedgerEntry) Money {
	return Money{amount: foldBalance(entries).Round(MoneyScale), currency: currency}
}
