package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// DepositInput represents the input for crediting a wallet from outside the ledger
type DepositInput struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// WithdrawInput represents the input for debiting a wallet to outside the ledger
type WithdrawInput struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// CreateWalletOutput is returned by CreateWallet
type CreateWalletOutput struct {
	Wallet *domain.Wallet
	Events []domain.Event
}

// MovementOutput is returned by Deposit and Withdraw
type MovementOutput struct {
	Entry   domain.LedgerEntry
	Balance domain.Money
	Events  []domain.Event
}

// WalletService handles wallet creation, deposits, withdrawals and balance queries
type WalletService struct {
	WalletRepo domain.WalletRepository
	Transactor domain.Transactor
	Locker     domain.WalletLocker
	Publisher  domain.EventPublisher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewWalletService creates a new WalletService instance
func NewWalletService(
	walletRepo domain.WalletRepository,
	transactor domain.Transactor,
	locker domain.WalletLocker,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		WalletRepo: walletRepo,
		Transactor: transactor,
		Locker:     locker,
		Publisher:  publisher,
		Logger:     logger,
		Now:        time.Now,
	}
}

// CreateWallet creates an empty wallet in the given currency
func (s *WalletService) CreateWallet(ctx context.Context, currencyCode string) (*CreateWalletOutput, error) {
	currency, err := domain.CurrencyOf(currencyCode)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	w, err := domain.NewWallet(currency, now)
	if err != nil {
		return nil, err
	}

	if err := s.WalletRepo.SaveWallet(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	events := []domain.Event{domain.NewWalletCreated(w, now)}
	s.publish(ctx, events)

	s.Logger.Info("wallet created",
		zap.String("wallet_id", w.ID().String()),
		zap.String("currency", currency.Code()),
	)
	return &CreateWalletOutput{Wallet: w, Events: events}, nil
}

// Deposit credits a wallet
// Logic:
//  1. Build Money from the input amount and currency
//  2. Under the wallet lock and a persistence transaction: load, credit with a fresh transaction id, save
//  3. Publish MoneyDeposited after commit
func (s *WalletService) Deposit(ctx context.Context, input DepositInput) (*MovementOutput, error) {
	amount, err := domain.MoneyOfCode(input.Amount, input.Currency)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	var out MovementOutput
	err = s.mutate(ctx, input.WalletID, func(w *domain.Wallet) error {
		entry, err := w.Credit(amount, uuid.New(), input.Description, now)
		if err != nil {
			return err
		}
		out.Entry = entry
		out.Balance = w.CalculateBalance()
		out.Events = []domain.Event{domain.NewMoneyDeposited(w, entry, now)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, out.Events)
	return &out, nil
}

// Withdraw debits a wallet
// Fails with domain.ErrInsufficientBalance if the folded balance does not cover the amount
func (s *WalletService) Withdraw(ctx context.Context, input WithdrawInput) (*MovementOutput, error) {
	amount, err := domain.MoneyOfCode(input.Amount, input.Currency)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	var out MovementOutput
	err = s.mutate(ctx, input.WalletID, func(w *domain.Wallet) error {
		entry, err := w.Debit(amount, uuid.New(), input.Description, now)
		if err != nil {
			return err
		}
		out.Entry = entry
		out.Balance = w.CalculateBalance()
		out.Events = []domain.Event{domain.NewMoneyWithdrawn(w, entry, now)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, out.Events)
	return &out, nil
}

// GetWallet loads a wallet with its full ledger
func (s *WalletService) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	return s.WalletRepo.LoadWallet(ctx, id)
}

// GetBalance folds the wallet's ledger into its current balance
func (s *WalletService) GetBalance(ctx context.Context, id uuid.UUID) (domain.Money, error) {
	w, err := s.WalletRepo.LoadWallet(ctx, id)
	if err != nil {
		return domain.Money{}, err
	}
	return w.CalculateBalance(), nil
}

// mutate serializes fn against other mutations of the same wallet and persists the result atomically
func (s *WalletService) mutate(ctx context.Context, walletID uuid.UUID, fn func(w *domain.Wallet) error) error {
	return s.Locker.WithWalletLocks(ctx, []uuid.UUID{walletID}, func(ctx context.Context) error {
		return s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			w, err := s.WalletRepo.LoadWallet(ctx, walletID)
			if err != nil {
				return err
			}
			if err := fn(w); err != nil {
				return err
			}
			if err := s.WalletRepo.SaveWallet(ctx, w); err != nil {
				return fmt.Errorf("failed to save wallet: %w", err)
			}
			return nil
		})
	})
}

// publish runs after commit; a publisher failure does not undo the mutation
func (s *WalletService) publish(ctx context.Context, events []domain.Event) {
	if s.Publisher == nil || len(events) == 0 {
		return
	}
	if err := s.Publisher.Publish(ctx, events...); err != nil {
		s.Logger.Warn("failed to publish events", zap.Error(err))
	}
}
