package domain

import (
	"strings"
	"time"
)

// TransferResult holds the transaction and the two ledger entries it produced
type TransferResult struct {
	Transaction      *Transaction
	SourceEntry      LedgerEntry
	DestinationEntry LedgerEntry
}

// TransferService moves money between two wallets of the same currency
type TransferService struct{}

// NewTransferService creates a new TransferService instance
func NewTransferService() *TransferService {
	return &TransferService{}
}

// Transfer debits source and credits destination under one transaction id
// Logic:
//  1. Source and destination currencies must match
//  2. Amount currency must match the source wallet
//  3. Build the Transaction (fails if source == destination)
//  4. Debit source; an insufficient balance aborts before destination is touched
//  5. Credit destination with the same transaction id
func (s *TransferService) Transfer(source, destination *Wallet, amount Money, description string, now time.Time) (*TransferResult, error) {
	if source == nil || destination == nil {
		return nil, validationError("source and destination wallets are required")
	}
	if source.Currency() != destination.Currency() {
		return nil, &CurrencyMismatchError{Expected: source.Currency(), Actual: destination.Currency()}
	}
	if amount.Currency() != source.Currency() {
		return nil, &CurrencyMismatchError{Expected: source.Currency(), Actual: amount.Currency()}
	}

	tx, err := NewTransfer(source.ID(), destination.ID(), amount, description, now)
	if err != nil {
		return nil, err
	}

	debitEntry, err := source.Debit(amount, tx.ID, transferDescription("Transfer to ", destination, description), now)
	if err != nil {
		return nil, err
	}

	// Credit cannot fail here: currency and amount were checked against the same wallet currency above.
	creditEntry, err := destination.Credit(amount, tx.ID, transferDescription("Transfer from ", source, description), now)
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		Transaction:      tx,
		SourceEntry:      debitEntry,
		DestinationEntry: creditEntry,
	}, nil
}

func transferDescription(prefix string, counterparty *Wallet, description string) string {
	base := prefix + counterparty.ID().String()
	if strings.TrimSpace(description) == "" {
		return base
	}
	return base + " - " + description
}
