package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMaxRateAge is how old a rate may be before Convert rejects it
	DefaultMaxRateAge = 15 * time.Minute
)

// DefaultExchangeFeeRate is the 0.5% fee charged on the gross amount of a cross-currency transfer
var DefaultExchangeFeeRate = decimal.RequireFromString("0.005")

// CurrencyExchangeService applies fees and exchange rates
type CurrencyExchangeService struct {
	MaxRateAge time.Duration
	FeeRate    decimal.Decimal
}

// NewCurrencyExchangeService creates a CurrencyExchangeService with the default fee and rate age
func NewCurrencyExchangeService() *CurrencyExchangeService {
	return &CurrencyExchangeService{
		MaxRateAge: DefaultMaxRateAge,
		FeeRate:    DefaultExchangeFeeRate,
	}
}

// CalculateExchangeFee returns amount x FeeRate, half-up to two digits, in the amount's currency
func (s *CurrencyExchangeService) CalculateExchangeFee(amount Money) (Money, error) {
	return amount.Multiply(s.FeeRate)
}

// Convert converts amount with rate after checking the rate is fresh and matches the amount's currency
func (s *CurrencyExchangeService) Convert(amount Money, rate ExchangeRate, now time.Time) (Money, error) {
	if rate.IsStale(s.MaxRateAge, now) {
		return Money{}, &StaleRateError{
			Source:    rate.Source(),
			Target:    rate.Target(),
			Timestamp: rate.Timestamp(),
			MaxAge:    s.MaxRateAge,
		}
	}
	return rate.Convert(amount)
}
