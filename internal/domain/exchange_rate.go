package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateScale is the number of fraction digits an exchange rate carries
const RateScale = 6

// ExchangeRate represents the price of one unit of Source in Target at a point in time
type ExchangeRate struct {
	source    Currency
	target    Currency
	rate      decimal.Decimal
	timestamp time.Time
}

// NewExchangeRate creates an ExchangeRate with the rate rounded half-up to RateScale digits
// Returns a validation error if either currency is missing or the rounded rate is not positive
func NewExchangeRate(source, target Currency, rate decimal.Decimal, timestamp time.Time) (ExchangeRate, error) {
	if source.IsZero() || target.IsZero() {
		return ExchangeRate{}, validationError("exchange rate currencies are required")
	}
	rounded := rate.Round(RateScale)
	if !rounded.IsPositive() {
		return ExchangeRate{}, validationError("exchange rate must be positive: %s", rate.String())
	}
	return ExchangeRate{source: source, target: target, rate: rounded, timestamp: timestamp}, nil
}

func (r ExchangeRate) Source() Currency {
	return r.source
}

func (r ExchangeRate) Target() Currency {
	return r.target
}

func (r ExchangeRate) Rate() decimal.Decimal {
	return r.rate
}

func (r ExchangeRate) Timestamp() time.Time {
	return r.timestamp
}

// Convert multiplies amount by the rate and returns it in the target currency.
// Staleness is not checked here; see CurrencyExchangeService.Convert.
func (r ExchangeRate) Convert(amount Money) (Money, error) {
	if amount.Currency() != r.source {
		return Money{}, &CurrencyMismatchError{Expected: r.source, Actual: amount.Currency()}
	}
	return MoneyOf(amount.Amount().Mul(r.rate), r.target)
}

// Invert returns the Target to Source rate (1/rate, half-up to RateScale digits)
func (r ExchangeRate) Invert() (ExchangeRate, error) {
	inverse := decimal.NewFromInt(1).DivRound(r.rate, RateScale)
	return NewExchangeRate(r.target, r.source, inverse, r.timestamp)
}

// IsStale reports whether more than maxAge has elapsed between the rate's timestamp and now
func (r ExchangeRate) IsStale(maxAge time.Duration, now time.Time) bool {
	return now.Sub(r.timestamp) > maxAge
}

func (r ExchangeRate) String() string {
	return "1 " + r.source.Code() + " = " + r.rate.StringFixed(RateScale) + " " + r.target.Code()
}
