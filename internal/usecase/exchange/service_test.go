package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/adapter/memory"
	"github.com/simaogato/walletledger-backend/internal/domain"
)

var testNow = time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC)

// MockRateProvider is a mock implementation of ExchangeRateProvider for testing
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) GetExchangeRate(ctx context.Context, source, target domain.Currency) (domain.ExchangeRate, error) {
	args := m.Called(ctx, source, target)
	return args.Get(0).(domain.ExchangeRate), args.Error(1)
}

func (m *MockRateProvider) GetAllRates(ctx context.Context, base domain.Currency) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

type fixture struct {
	service *ExchangeService
	rates   *MockRateProvider
	wallets domain.WalletRepository
	txs     domain.TransactionRepository
	events  *memory.EventRecorder
}

func newFixture() *fixture {
	store := memory.NewStore()
	wallets := memory.NewWalletRepository(store)
	txs := memory.NewTransactionRepository(store)
	rates := new(MockRateProvider)
	events := memory.NewEventRecorder()
	service := NewExchangeService(wallets, txs, rates, memory.NewTransactor(store), memory.NewWalletLocker(), events, zap.NewNop())
	service.Now = func() time.Time { return testNow }
	return &fixture{service: service, rates: rates, wallets: wallets, txs: txs, events: events}
}

func (f *fixture) wallet(t *testing.T, code, balance string) *domain.Wallet {
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
	return w
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) string {
	t.Helper()
	w, err := f.wallets.LoadWallet(context.Background(), id)
	require.NoError(t, err)
	return w.CalculateBalance().String()
}

func rate(t *testing.T, source, target, value string, at time.Time) domain.ExchangeRate {
	t.Helper()
	r, err := domain.NewExchangeRate(domain.MustCurrency(source), domain.MustCurrency(target), decimal.RequireFromString(value), at)
	require.NoError(t, err)
	return r
}

func TestCrossCurrencyTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	source := f.wallet(t, "USD", "150")
	destination := f.wallet(t, "EUR", "")

	f.rates.On("GetExchangeRate", ctx, domain.MustCurrency("USD"), domain.MustCurrency("EUR")).
		Return(rate(t, "USD", "EUR", "0.92", testNow.Add(-time.Minute)), nil)

	out, err := f.service.CrossCurrencyTransfer(ctx, CrossCurrencyTransferInput{
		SourceWalletID:      source.ID(),
		DestinationWalletID: destination.ID(),
		Amount:              decimal.RequireFromString("100.00"),
		SourceCurrency:      "USD",
		TargetCurrency:      "EUR",
		Description:         "Holiday",
	})
	require.NoError(t, err)

	assert.Equal(t, "100.00 USD", out.SourceAmount.String())
	assert.Equal(t, "0.50 USD", out.Fee.String())
	assert.Equal(t, "91.54 EUR", out.TargetAmount.String())
	assert.Equal(t, "50.00 USD", f.balance(t, source.ID()))
	assert.Equal(t, "91.54 EUR", f.balance(t, destination.ID()))

	assert.Equal(t, "Holiday (Rate: 0.92)", out.Transaction.Description)
	assert.Equal(t, "100.00 USD", out.Transaction.Amount.String())

	stored, err := f.txs.GetTransaction(ctx, out.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Transaction.ID, stored.ID)

	require.Len(t, out.Events, 1)
	transferred, ok := out.Events[0].(domain.MoneyTransferred)
	require.True(t, ok)
	assert.True(t, transferred.CrossCurrency)
	assert.Equal(t, "91.54 EUR", transferred.ConvertedAmount)
	f.rates.AssertExpectations(t)
}

func TestCrossCurrencyTransfer_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("Stale rate", func(t *testing.T) {
		f := newFixture()
		source := f.wallet(t, "USD", "150")
		destination := f.wallet(t, "EUR", "")
		f.rates.On("GetExchangeRate", ctx, mock.Anything, mock.Anything).
			Return(rate(t, "USD", "EUR", "0.92", testNow.Add(-16*time.Minute)), nil)

		_, err := f.service.CrossCurrencyTransfer(ctx, CrossCurrencyTransferInput{
			SourceWalletID: source.ID(), DestinationWalletID: destination.ID(),
			Amount: decimal.NewFromInt(100), SourceCurrency: "USD", TargetCurrency: "EUR",
		})
		assert.ErrorIs(t, err, domain.ErrStaleRate)
		assert.Equal(t, "150.00 USD", f.balance(t, source.ID()))
	})

	t.Run("Rate unavailable", func(t *testing.T) {
		f := newFixture()
		source := f.wallet(t, "USD", "150")
		destination := f.wallet(t, "EUR", "")
		f.rates.On("GetExchangeRate", ctx, mock.Anything, mock.Anything).
			Return(domain.ExchangeRate{}, domain.NewNotFoundError("exchange rate", uuid.Nil))

		_, err := f.service.CrossCurrencyTransfer(ctx, CrossCurrencyTransferInput{
			SourceWalletID: source.ID(), DestinationWalletID: destination.ID(),
			Amount: decimal.NewFromInt(100), SourceCurrency: "USD", TargetCurrency: "EUR",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), "exchange rate not available for USD to EUR")
	})

	t.Run("Destination currency differs from target", func(t *testing.T) {
		f := newFixture()
		source := f.wallet(t, "USD", "150")
		destination := f.wallet(t, "GBP", "")
		f.rates.On("GetExchangeRate", ctx, mock.Anything, mock.Anything).
			Return(rate(t, "USD", "EUR", "0.92", testNow), nil)

		_, err := f.service.CrossCurrencyTransfer(ctx, CrossCurrencyTransferInput{
			SourceWalletID: source.ID(), DestinationWalletID: destination.ID(),
			Amount: decimal.NewFromInt(100), SourceCurrency: "USD", TargetCurrency: "EUR",
		})
		assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
		assert.Equal(t, "150.00 USD", f.balance(t, source.ID()))
		assert.Empty(t, f.events.Names())
	})

	t.Run("Gross amount exceeds balance", func(t *testing.T) {
		f := newFixture()
		source := f.wallet(t, "USD", "100")
		destination := f.wallet(t, "EUR", "")
		f.rates.On("GetExchangeRate", ctx, mock.Anything, mock.Anything).
			Return(rate(t, "USD", "EUR", "0.92", testNow), nil)

		_, err := f.service.CrossCurrencyTransfer(ctx, CrossCurrencyTransferInput{
			SourceWalletID: source.ID(), DestinationWalletID: destination.ID(),
			Amount: decimal.RequireFromString("100.01"), SourceCurrency: "USD", TargetCurrency: "EUR",
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.Equal(t, "0.00 EUR", f.balance(t, destination.ID()))
	})
}

func TestGetRates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	want := map[string]decimal.Decimal{"EUR": decimal.RequireFromString("0.92")}
	f.rates.On("GetAllRates", ctx, domain.MustCurrency("USD")).Return(want, nil)

	got, err := f.service.GetRates(ctx, "usd")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = f.service.GetRates(ctx, "XXX")
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.rates.On("GetExchangeRate", ctx, domain.MustCurrency("USD"), domain.MustCurrency("JPY")).
		Return(domain.ExchangeRate{}, errors.New("provider down"))
	_, err = f.service.GetRate(ctx, "USD", "JPY")
	assert.EqualError(t, err, "provider down")
}
