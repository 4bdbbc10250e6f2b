package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyOf(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantCode string
		wantErr  bool
	}{
		{name: "Uppercase code", code: "USD", wantCode: "USD"},
		{name: "Lowercase code with spaces is normalized", code: "  eur ", wantCode: "EUR"},
		{name: "Blank code fails", code: "   ", wantErr: true},
		{name: "Unsupported code fails", code: "XYZ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := CurrencyOf(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				assert.True(t, c.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, c.Code())
		})
	}
}

func TestCurrency_EqualityByCode(t *testing.T) {
	a, err := CurrencyOf("gbp")
	require.NoError(t, err)
	b, err := CurrencyOf("GBP")
	require.NoError(t, err)

	assert.True(t, a == b)
	assert.Len(t, SupportedCurrencies(), 10)
}

func TestMoneyOf_Rounding(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{name: "Half rounds up", amount: "100.555", want: "100.56"},
		{name: "Below half rounds down", amount: "100.554", want: "100.55"},
		{name: "Whole number gets two digits", amount: "7", want: "7.00"},
		{name: "Zero is allowed", amount: "0", want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := MoneyOf(decimal.RequireFromString(tt.amount), MustCurrency("USD"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount().StringFixed(MoneyScale))
		})
	}
}

func TestMoneyOf_NegativeFails(t *testing.T) {
	_, err := MoneyOf(decimal.NewFromFloat(-0.01), MustCurrency("USD"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = MoneyOf(decimal.NewFromInt(1), Currency{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoneyFromString(t *testing.T) {
	m, err := MoneyFromString("12.345", "chf")
	require.NoError(t, err)
	assert.Equal(t, "12.35 CHF", m.String())

	_, err = MoneyFromString("abc", "USD")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoney_Arithmetic(t *testing.T) {
	usd := MustCurrency("USD")
	eur := MustCurrency("EUR")
	ten, _ := MoneyOf(decimal.NewFromInt(10), usd)
	four, _ := MoneyOf(decimal.RequireFromString("4.25"), usd)
	tenEUR, _ := MoneyOf(decimal.NewFromInt(10), eur)

	sum, err := ten.Add(four)
	require.NoError(t, err)
	assert.Equal(t, "14.25 USD", sum.String())

	diff, err := ten.Subtract(four)
	require.NoError(t, err)
	assert.Equal(t, "5.75 USD", diff.String())

	_, err = four.Subtract(ten)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ten.Add(tenEUR)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	var mismatch *CurrencyMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, usd, mismatch.Expected)
	assert.Equal(t, eur, mismatch.Actual)

	_, err = ten.Subtract(tenEUR)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_NumericEquality(t *testing.T) {
	usd := MustCurrency("USD")
	a, _ := MoneyOf(decimal.RequireFromString("10.5"), usd)
	b, _ := MoneyOf(decimal.RequireFromString("10.50"), usd)
	c, _ := MoneyOf(decimal.RequireFromString("10.50"), MustCurrency("EUR"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	gte, err := a.GreaterThanOrEqual(b)
	require.NoError(t, err)
	assert.True(t, gte)

	gt, err := a.GreaterThan(b)
	require.NoError(t, err)
	assert.False(t, gt)
}

func TestExchangeRate(t *testing.T) {
	usd := MustCurrency("USD")
	eur := MustCurrency("EUR")
	now := testNow()

	t.Run("Rate is rounded to six digits", func(t *testing.T) {
		r, err := NewExchangeRate(usd, eur, decimal.RequireFromString("0.91999951"), now)
		require.NoError(t, err)
		assert.Equal(t, "0.920000", r.Rate().StringFixed(RateScale))
	})

	t.Run("Non-positive rate fails", func(t *testing.T) {
		_, err := NewExchangeRate(usd, eur, decimal.Zero, now)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = NewExchangeRate(usd, eur, decimal.RequireFromString("0.0000001"), now)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Convert rounds half-up into the target currency", func(t *testing.T) {
		r, _ := NewExchangeRate(usd, eur, decimal.RequireFromString("0.92"), now)
		amount, _ := MoneyOf(decimal.RequireFromString("99.50"), usd)
		converted, err := r.Convert(amount)
		require.NoError(t, err)
		assert.Equal(t, "91.54 EUR", converted.String())

		_, err = r.Convert(ZeroMoney(eur))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("Invert", func(t *testing.T) {
		r, _ := NewExchangeRate(usd, eur, decimal.RequireFromString("0.8"), now)
		inv, err := r.Invert()
		require.NoError(t, err)
		assert.Equal(t, eur, inv.Source())
		assert.Equal(t, usd, inv.Target())
		assert.Equal(t, "1.250000", inv.Rate().StringFixed(RateScale))
		assert.Equal(t, now, inv.Timestamp())
	})

	t.Run("Staleness", func(t *testing.T) {
		r, _ := NewExchangeRate(usd, eur, decimal.NewFromInt(1), now)
		assert.False(t, r.IsStale(15*time.Minute, now.Add(15*time.Minute)))
		assert.True(t, r.IsStale(15*time.Minute, now.Add(15*time.Minute+time.Second)))
	})
}
