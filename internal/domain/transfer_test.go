package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferService_Transfer(t *testing.T) {
	service := NewTransferService()

	t.Run("Full balance transfer", func(t *testing.T) {
		source := newUSDWallet(t)
		destination := newUSDWallet(t)
		_, err := source.Credit(usd(t, "500.00"), uuid.New(), "Deposit", testNow())
		require.NoError(t, err)

		result, err := service.Transfer(source, destination, usd(t, "500.00"), "Rent", testNow())
		require.NoError(t, err)

		assert.Equal(t, "0.00 USD", source.CalculateBalance().String())
		assert.Equal(t, "500.00 USD", destination.CalculateBalance().String())

		tx := result.Transaction
		assert.Equal(t, TransactionStatusCompleted, tx.Status)
		assert.Equal(t, "Rent", tx.Description)
		assert.Equal(t, source.ID(), tx.SourceWalletID)
		assert.Equal(t, destination.ID(), tx.DestinationWalletID)

		assert.Equal(t, tx.ID, result.SourceEntry.TransactionID)
		assert.Equal(t, tx.ID, result.DestinationEntry.TransactionID)
		assert.Equal(t, EntryTypeDebit, result.SourceEntry.Type)
		assert.Equal(t, EntryTypeCredit, result.DestinationEntry.Type)
		assert.Equal(t, "Transfer to "+destination.ID().String()+" - Rent", result.SourceEntry.Description)
		assert.Equal(t, "Transfer from "+source.ID().String()+" - Rent", result.DestinationEntry.Description)
	})

	t.Run("Blank description uses defaults", func(t *testing.T) {
		source := newUSDWallet(t)
		destination := newUSDWallet(t)
		_, err := source.Credit(usd(t, "10"), uuid.New(), "", testNow())
		require.NoError(t, err)

		result, err := service.Transfer(source, destination, usd(t, "1"), "  ", testNow())
		require.NoError(t, err)
		assert.Equal(t, "Transfer", result.Transaction.Description)
		assert.Equal(t, "Transfer to "+destination.ID().String(), result.SourceEntry.Description)
	})

	t.Run("Insufficient balance leaves both ledgers untouched", func(t *testing.T) {
		source := newUSDWallet(t)
		destination := newUSDWallet(t)
		_, err := source.Credit(usd(t, "10"), uuid.New(), "", testNow())
		require.NoError(t, err)

		_, err = service.Transfer(source, destination, usd(t, "10.01"), "", testNow())
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Len(t, source.Entries(), 1)
		assert.Empty(t, destination.Entries())
	})

	t.Run("Wallet currencies must match", func(t *testing.T) {
		source := newUSDWallet(t)
		destination, err := NewWallet(MustCurrency("EUR"), testNow())
		require.NoError(t, err)

		_, err = service.Transfer(source, destination, usd(t, "1"), "", testNow())
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("Amount currency must match wallets", func(t *testing.T) {
		source := newUSDWallet(t)
		destination := newUSDWallet(t)
		gbp, err := MoneyOf(decimal.NewFromInt(1), MustCurrency("GBP"))
		require.NoError(t, err)

		_, err = service.Transfer(source, destination, gbp, "", testNow())
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("Same wallet fails validation", func(t *testing.T) {
		source := newUSDWallet(t)
		_, err := source.Credit(usd(t, "10"), uuid.New(), "", testNow())
		require.NoError(t, err)

		_, err = service.Transfer(source, source, usd(t, "1"), "", testNow())
		assert.ErrorIs(t, err, ErrValidation)
		assert.Len(t, source.Entries(), 1)
	})
}

func TestCurrencyExchangeService(t *testing.T) {
	service := NewCurrencyExchangeService()
	usdCur := MustCurrency("USD")
	eurCur := MustCurrency("EUR")

	t.Run("Fee and conversion of 100 USD at 0.92", func(t *testing.T) {
		gross := usd(t, "100.00")
		fee, err := service.CalculateExchangeFee(gross)
		require.NoError(t, err)
		assert.Equal(t, "0.50 USD", fee.String())

		net, err := gross.Subtract(fee)
		require.NoError(t, err)

		rate, err := NewExchangeRate(usdCur, eurCur, decimal.RequireFromString("0.92"), testNow())
		require.NoError(t, err)

		converted, err := service.Convert(net, rate, testNow().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "91.54 EUR", converted.String())
	})

	t.Run("Fee rounds half-up", func(t *testing.T) {
		fee, err := service.CalculateExchangeFee(usd(t, "1.00"))
		require.NoError(t, err)
		assert.Equal(t, "0.01 USD", fee.String())
	})

	t.Run("Stale rate fails", func(t *testing.T) {
		rate, err := NewExchangeRate(usdCur, eurCur, decimal.RequireFromString("0.92"), testNow())
		require.NoError(t, err)

		_, err = service.Convert(usd(t, "1"), rate, testNow().Add(16*time.Minute))
		assert.ErrorIs(t, err, ErrStaleRate)
	})

	t.Run("Amount currency must be the rate source", func(t *testing.T) {
		rate, err := NewExchangeRate(eurCur, usdCur, decimal.RequireFromString("1.08"), testNow())
		require.NoError(t, err)

		_, err = service.Convert(usd(t, "1"), rate, testNow())
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})
}
