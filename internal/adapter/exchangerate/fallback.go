package exchangerate

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// usdRates quotes one US dollar in every supported currency
var usdRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.92"),
	"GBP": decimal.RequireFromString("0.79"),
	"CHF": decimal.RequireFromString("0.88"),
	"JPY": decimal.RequireFromString("149.50"),
	"CAD": decimal.RequireFromString("1.36"),
	"AUD": decimal.RequireFromString("1.53"),
	"NZD": decimal.RequireFromString("1.64"),
	"SGD": decimal.RequireFromString("1.34"),
	"HKD": decimal.RequireFromString("7.82"),
}

// FallbackProvider serves constant USD-based rates, crossing through USD for other pairs
type FallbackProvider struct {
	Now func() time.Time
}

// NewFallbackProvider creates a FallbackProvider stamped with the current time
func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{Now: time.Now}
}

func (p *FallbackProvider) GetExchangeRate(_ context.Context, source, target domain.Currency) (domain.ExchangeRate, error) {
	value, err := crossRate(source.Code(), target.Code())
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	return domain.NewExchangeRate(source, target, value, p.Now())
}

// GetAllRates quotes base against every currency in the table
func (p *FallbackProvider) GetAllRates(_ context.Context, base domain.Currency) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(usdRates))
	for code := range usdRates {
		value, err := crossRate(base.Code(), code)
		if err != nil {
			return nil, err
		}
		rates[code] = value
	}
	return rates, nil
}

// crossRate is (1 / usdRates[source]) * usdRates[target], the inverse rounded to RateScale
func crossRate(source, target string) (decimal.Decimal, error) {
	sourceRate, ok := usdRates[source]
	if !ok {
		return decimal.Decimal{}, &domain.NotFoundError{Resource: "exchange rate", ID: source}
	}
	targetRate, ok := usdRates[target]
	if !ok {
		return decimal.Decimal{}, &domain.NotFoundError{Resource: "exchange rate", ID: target}
	}

	toUSD := decimal.NewFromInt(1)
	if source != "USD" {
		toUSD = decimal.NewFromInt(1).DivRound(sourceRate, domain.RateScale)
	}
	return toUSD.Mul(targetRate).Round(domain.RateScale), nil
}
