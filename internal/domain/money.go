package domain

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits every Money amount carries
const MoneyScale = 2

// Money represents a non-negative amount in a single currency.
// Amounts are rounded half-up to MoneyScale digits on construction.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// MoneyOf creates a Money value
// Returns a validation error if the amount is negative or the currency is missing
func MoneyOf(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency.IsZero() {
		return Money{}, validationError("currency is required")
	}
	if amount.IsNegative() {
		return Money{}, validationError("amount must not be negative: %s", amount.String())
	}
	return Money{amount: amount.Round(MoneyScale), currency: currency}, nil
}

// MoneyOfCode is MoneyOf with the currency given as a code
func MoneyOfCode(amount decimal.Decimal, code string) (Money, error) {
	currency, err := CurrencyOf(code)
	if err != nil {
		return Money{}, err
	}
	return MoneyOf(amount, currency)
}

// MoneyFromString parses a decimal amount and a currency code
func MoneyFromString(amount, code string) (Money, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, validationError("invalid amount format: %s", amount)
	}
	return MoneyOfCode(value, code)
}

// ZeroMoney returns 0.00 in the given currency
func ZeroMoney(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the money's currency
func (m Money) Currency() Currency {
	return m.currency
}

// Add returns m + other. Both operands must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return Money{}, err
	}
	return MoneyOf(m.amount.Add(other.amount), m.currency)
}

// Subtract returns m - other
// Fails with a validation error if the result would be negative
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, validationError("subtraction would result in negative amount: %s - %s", m, other)
	}
	return MoneyOf(result, m.currency)
}

// Multiply scales the amount by factor, rounding half-up to MoneyScale digits
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	return MoneyOf(m.amount.Mul(factor), m.currency)
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// GreaterThan compares amounts numerically; currencies must match
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// GreaterThanOrEqual compares amounts numerically; currencies must match
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

// Equal reports numeric equality in the same currency (10.5 equals 10.50)
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String formats the amount with exactly two fraction digits followed by the currency code
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale) + " " + m.currency.Code()
}

func (m Money) requireSameCurrency(other Money) error {
	if m.currency != other.currency {
		return &CurrencyMismatchError{Expected: m.currency, Actual: other.currency}
	}
	return nil
}
