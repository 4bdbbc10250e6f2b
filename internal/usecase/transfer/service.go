package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// TransferInput represents the input for a same-currency transfer
type TransferInput struct {
	SourceWalletID      uuid.UUID
	DestinationWalletID uuid.UUID
	Amount              decimal.Decimal
	Currency            string
	Description         string
}

// TransferOutput carries the persisted transaction, both ledger entries and the events published
type TransferOutput struct {
	Transaction      *domain.Transaction
	SourceEntry      domain.LedgerEntry
	DestinationEntry domain.LedgerEntry
	Events           []domain.Event
}

// TransferService orchestrates same-currency transfers between wallets
type TransferService struct {
	WalletRepo      domain.WalletRepository
	TransactionRepo domain.TransactionRepository
	Transactor      domain.Transactor
	Locker          domain.WalletLocker
	Publisher       domain.EventPublisher
	Transfers       *domain.TransferService
	Logger          *zap.Logger
	Now             func() time.Time
}

// NewTransferService creates a new TransferService instance
func NewTransferService(
	walletRepo domain.WalletRepository,
	transactionRepo domain.TransactionRepository,
	transactor domain.Transactor,
	locker domain.WalletLocker,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		WalletRepo:      walletRepo,
		TransactionRepo: transactionRepo,
		Transactor:      transactor,
		Locker:          locker,
		Publisher:       publisher,
		Transfers:       domain.NewTransferService(),
		Logger:          logger,
		Now:             time.Now,
	}
}

// Transfer moves money between two wallets
// Logic:
//  1. Build Money from the input
//  2. Lock both wallet ids (sorted) so no other mutation of either wallet is in flight
//  3. Inside one persistence transaction: load both wallets, run the domain transfer
//     (debit before credit), save both wallets and the transaction
//  4. Publish MoneyTransferred after commit
func (s *TransferService) Transfer(ctx context.Context, input TransferInput) (*TransferOutput, error) {
	amount, err := domain.MoneyOfCode(input.Amount, input.Currency)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	var out TransferOutput
	ids := []uuid.UUID{input.SourceWalletID, input.DestinationWalletID}
	err = s.Locker.WithWalletLocks(ctx, ids, func(ctx context.Context) error {
		return s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			source, err := s.WalletRepo.LoadWallet(ctx, input.SourceWalletID)
			if err != nil {
				return err
			}
			destination, err := s.WalletRepo.LoadWallet(ctx, input.DestinationWalletID)
			if err != nil {
				return err
			}

			result, err := s.Transfers.Transfer(source, destination, amount, input.Description, now)
			if err != nil {
				return err
			}

			if err := s.WalletRepo.SaveWallet(ctx, source); err != nil {
				return fmt.Errorf("failed to save source wallet: %w", err)
			}
			if err := s.WalletRepo.SaveWallet(ctx, destination); err != nil {
				return fmt.Errorf("failed to save destination wallet: %w", err)
			}
			if err := s.TransactionRepo.SaveTransaction(ctx, result.Transaction); err != nil {
				return fmt.Errorf("failed to save transaction: %w", err)
			}

			out.Transaction = result.Transaction
			out.SourceEntry = result.SourceEntry
			out.DestinationEntry = result.DestinationEntry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	out.Events = []domain.Event{domain.NewMoneyTransferred(out.Transaction, amount, now)}
	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, out.Events...); err != nil {
			s.Logger.Warn("failed to publish events",
				zap.String("transaction_id", out.Transaction.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.Logger.Info("transfer completed",
		zap.String("transaction_id", out.Transaction.ID.String()),
		zap.String("source_wallet_id", input.SourceWalletID.String()),
		zap.String("destination_wallet_id", input.DestinationWalletID.String()),
		zap.String("amount", amount.String()),
	)
	return &out, nil
}

// GetTransaction retrieves a persisted transaction
func (s *TransferService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.TransactionRepo.GetTransaction(ctx, id)
}

// ListTransactions returns a page of transactions and the total count for the filter
func (s *TransferService) ListTransactions(ctx context.Context, limit, offset int, walletID *uuid.UUID) ([]*domain.Transaction, int, error) {
	if limit <= 0 {
		return nil, 0, fmt.Errorf("%w: limit must be positive", domain.ErrValidation)
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must be non-negative", domain.ErrValidation)
	}

	total, err := s.TransactionRepo.CountTransactions(ctx, walletID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	txs, err := s.TransactionRepo.ListTransactions(ctx, limit, offset, walletID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}
