package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// latestResponse is the body of GET /latest.json
type latestResponse struct {
	Timestamp int64                      `json:"timestamp"`
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

// OpenExchangeRatesClient fetches live rates from an Open Exchange Rates compatible API
type OpenExchangeRatesClient struct {
	BaseURL string
	AppID   string
	HTTP    *http.Client
	Now     func() time.Time
}

// NewOpenExchangeRatesClient creates a client; timeout bounds every request
func NewOpenExchangeRatesClient(baseURL, appID string, timeout time.Duration) *OpenExchangeRatesClient {
	return &OpenExchangeRatesClient{
		BaseURL: baseURL,
		AppID:   appID,
		HTTP:    &http.Client{Timeout: timeout},
		Now:     time.Now,
	}
}

// GetExchangeRate returns the rate from source to target, stamped with the fetch time
func (c *OpenExchangeRatesClient) GetExchangeRate(ctx context.Context, source, target domain.Currency) (domain.ExchangeRate, error) {
	rates, err := c.GetAllRates(ctx, source)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	value, ok := rates[target.Code()]
	if !ok {
		return domain.ExchangeRate{}, &domain.NotFoundError{Resource: "exchange rate", ID: source.Code() + "/" + target.Code()}
	}
	return domain.NewExchangeRate(source, target, value, c.Now())
}

// GetAllRates returns the latest rates quoted against base, restricted to supported currencies
func (c *OpenExchangeRatesClient) GetAllRates(ctx context.Context, base domain.Currency) (map[string]decimal.Decimal, error) {
	query := url.Values{}
	query.Set("app_id", c.AppID)
	query.Set("base", base.Code())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/latest.json?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build exchange rate request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch exchange rates: unexpected status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode exchange rates: %w", err)
	}

	rates := make(map[string]decimal.Decimal)
	for _, code := range domain.SupportedCurrencies() {
		if value, ok := body.Rates[code]; ok {
			rates[code] = value
		}
	}
	return rates, nil
}
