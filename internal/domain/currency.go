package domain

import (
	"sort"
	"strings"
)

var supportedCurrencies = map[string]struct{}{
	"USD": {},
	"EUR": {},
	"GBP": {},
	"CHF": {},
	"JPY": {},
	"CAD": {},
	"AUD": {},
	"NZD": {},
	"SGD": {},
	"HKD": {},
}

// Currency represents an ISO 4217 code from the supported set.
// The zero value is not a valid currency.
type Currency struct {
	code string
}

// CurrencyOf normalizes the code (trim + uppercase) and validates it against the supported set
func CurrencyOf(code string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Currency{}, validationError("currency code must not be blank")
	}
	if _, ok := supportedCurrencies[normalized]; !ok {
		return Currency{}, validationError("unsupported currency: %s", normalized)
	}
	return Currency{code: normalized}, nil
}

// MustCurrency is CurrencyOf for codes known at compile time. It panics on invalid input.
func MustCurrency(code string) Currency {
	c, err := CurrencyOf(code)
	if err != nil {
		panic(err)
	}
	return c
}

// SupportedCurrencies returns the supported codes in alphabetical order
func SupportedCurrencies() []string {
	codes := make([]string, 0, len(supportedCurrencies))
	for code := range supportedCurrencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Code returns the three-letter currency code
func (c Currency) Code() string {
	return c.code
}

// IsZero reports whether c is the zero Currency
func (c Currency) IsZero() bool {
	return c.code == ""
}

func (c Currency) String() string {
	return c.code
}
