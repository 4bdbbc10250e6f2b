package transfer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/adapter/memory"
	"github.com/simaogato/walletledger-backend/internal/domain"
)

var testNow = time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	service *TransferService
	wallets domain.WalletRepository
	events  *memory.EventRecorder
}

func newFixture() *fixture {
	store := memory.NewStore()
	wallets := memory.NewWalletRepository(store)
	events := memory.NewEventRecorder()
	service := NewTransferService(wallets, memory.NewTransactionRepository(store), memory.NewTransactor(store),
		memory.NewWalletLocker(), events, zap.NewNop())
	service.Now = func() time.Time { return testNow }
	return &fixture{service: service, wallets: wallets, events: events}
}

func (f *fixture) wallet(t *testing.T, code, balance string) uuid.UUID {
	t.Helper()
	w, err := domain.NewWallet(domain.MustCurrency(code), testNow)
	require.NoError(t, err)
	if balance != "" {
		m, err := domain.MoneyFromString(balance, code)
		require.NoError(t, err)
		_, err = w.Credit(m, uuid.New(), "Deposit", testNow)
		require.NoError(t, err)
	}
	require.NoError(t, f.wallets.SaveWallet(context.Background(), w))
	return w.ID()
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.LoadWallet(context.Background(), id)
	require.NoError(t, err)
	return w.CalculateBalance().Amount()
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	source := f.wallet(t, "USD", "500")
	destination := f.wallet(t, "USD", "")

	out, err := f.service.Transfer(ctx, TransferInput{
		SourceWalletID:      source,
		DestinationWalletID: destination,
		Amount:              decimal.RequireFromString("500.00"),
		Currency:            "USD",
		Description:         "Rent",
	})
	require.NoError(t, err)

	assert.True(t, f.balance(t, source).IsZero())
	assert.Equal(t, "500", f.balance(t, destination).String())
	assert.Equal(t, domain.TransactionStatusCompleted, out.Transaction.Status)
	assert.Equal(t, []string{domain.EventMoneyTransferred}, f.events.Names())

	stored, err := f.service.GetTransaction(ctx, out.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Transaction.ID, stored.ID)

	txs, total, err := f.service.ListTransactions(ctx, 10, 0, &source)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, txs, 1)
}

func TestTransfer_FailuresLeaveLedgersUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	usdA := f.wallet(t, "USD", "10")
	usdB := f.wallet(t, "USD", "")
	eur := f.wallet(t, "EUR", "")

	tests := []struct {
		name    string
		input   TransferInput
		wantErr error
	}{
		{
			name:    "Insufficient balance",
			input:   TransferInput{SourceWalletID: usdA, DestinationWalletID: usdB, Amount: decimal.RequireFromString("10.01"), Currency: "USD"},
			wantErr: domain.ErrInsufficientBalance,
		},
		{
			name:    "Currency mismatch between wallets",
			input:   TransferInput{SourceWalletID: usdA, DestinationWalletID: eur, Amount: decimal.NewFromInt(1), Currency: "USD"},
			wantErr: domain.ErrCurrencyMismatch,
		},
		{
			name:    "Same wallet",
			input:   TransferInput{SourceWalletID: usdA, DestinationWalletID: usdA, Amount: decimal.NewFromInt(1), Currency: "USD"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "Unknown destination",
			input:   TransferInput{SourceWalletID: usdA, DestinationWalletID: uuid.New(), Amount: decimal.NewFromInt(1), Currency: "USD"},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Transfer(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "10", f.balance(t, usdA).String())
			assert.True(t, f.balance(t, usdB).IsZero())
		})
	}

	_, total, err := f.service.ListTransactions(ctx, 10, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, f.events.Names())
}

func TestTransfer_ConcurrentTransfersConserveMoney(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := f.wallet(t, "USD", "100")
	b := f.wallet(t, "USD", "100")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		src, dst := a, b
		if i%2 == 1 {
			src, dst = b, a
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Transfer(ctx, TransferInput{
				SourceWalletID:      src,
				DestinationWalletID: dst,
				Amount:              decimal.NewFromInt(7),
				Currency:            "USD",
			})
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
			}
		}()
	}
	wg.Wait()

	total := f.balance(t, a).Add(f.balance(t, b))
	assert.Equal(t, "200", total.String())
	assert.False(t, f.balance(t, a).IsNegative())
	assert.False(t, f.balance(t, b).IsNegative())
}

func TestListTransactions_Validation(t *testing.T) {
	f := newFixture()

	_, _, err := f.service.ListTransactions(context.Background(), 0, 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = f.service.ListTransactions(context.Background(), 10, -1, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
