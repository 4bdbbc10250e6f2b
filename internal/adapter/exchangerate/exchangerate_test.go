package exchangerate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

var testNow = time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC)

func fixedFallback() *FallbackProvider {
	return &FallbackProvider{Now: func() time.Time { return testNow }}
}

func TestFallbackProvider_CrossRates(t *testing.T) {
	provider := fixedFallback()
	tests := []struct {
		source, target string
		want           string
	}{
		{"USD", "EUR", "0.92"},
		{"USD", "JPY", "149.5"},
		{"EUR", "USD", "1.086957"},
		{"EUR", "GBP", "0.858696"},
		{"JPY", "USD", "0.006689"},
		{"CHF", "CHF", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.source+"/"+tt.target, func(t *testing.T) {
			rate, err := provider.GetExchangeRate(context.Background(), domain.MustCurrency(tt.source), domain.MustCurrency(tt.target))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rate.Rate().String())
			assert.Equal(t, testNow, rate.Timestamp())
		})
	}
}

func TestFallbackProvider_GetAllRates(t *testing.T) {
	rates, err := fixedFallback().GetAllRates(context.Background(), domain.MustCurrency("USD"))
	require.NoError(t, err)
	assert.Len(t, rates, 10)
	assert.Equal(t, "7.82", rates["HKD"].String())
	assert.Equal(t, "1", rates["USD"].String())
}

func TestOpenExchangeRatesClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest.json", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("app_id"))
		if r.URL.Query().Get("base") != "USD" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"timestamp": 1714651200, "base": "USD", "rates": {"EUR": 0.9301, "GBP": 0.7999, "XAU": 0.0004}}`)
	}))
	defer server.Close()

	client := NewOpenExchangeRatesClient(server.URL, "secret", time.Second)
	client.Now = func() time.Time { return testNow }
	usd := domain.MustCurrency("USD")

	rates, err := client.GetAllRates(context.Background(), usd)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"EUR": "0.9301", "GBP": "0.7999"}, stringify(rates))

	rate, err := client.GetExchangeRate(context.Background(), usd, domain.MustCurrency("EUR"))
	require.NoError(t, err)
	assert.Equal(t, "0.9301", rate.Rate().String())
	assert.Equal(t, testNow, rate.Timestamp())

	_, err = client.GetExchangeRate(context.Background(), usd, domain.MustCurrency("JPY"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = client.GetAllRates(context.Background(), domain.MustCurrency("EUR"))
	assert.ErrorContains(t, err, "unexpected status 403")
}

// MockProvider is a mock implementation of ExchangeRateProvider for testing
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetExchangeRate(ctx context.Context, source, target domain.Currency) (domain.ExchangeRate, error) {
	args := m.Called(ctx, source, target)
	return args.Get(0).(domain.ExchangeRate), args.Error(1)
}

func (m *MockProvider) GetAllRates(ctx context.Context, base domain.Currency) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func TestBreakerProvider(t *testing.T) {
	ctx := context.Background()
	usd, eur := domain.MustCurrency("USD"), domain.MustCurrency("EUR")
	cfg := BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, ConsecutiveFailures: 2}

	t.Run("Primary answers while healthy", func(t *testing.T) {
		primary := new(MockProvider)
		live, err := domain.NewExchangeRate(usd, eur, decimal.RequireFromString("0.93"), testNow)
		require.NoError(t, err)
		primary.On("GetExchangeRate", ctx, usd, eur).Return(live, nil)

		provider := NewBreakerProvider(primary, fixedFallback(), cfg, zap.NewNop())
		rate, err := provider.GetExchangeRate(ctx, usd, eur)
		require.NoError(t, err)
		assert.Equal(t, "0.93", rate.Rate().String())
	})

	t.Run("Failures fall back and open the circuit", func(t *testing.T) {
		primary := new(MockProvider)
		primary.On("GetExchangeRate", ctx, usd, eur).Return(domain.ExchangeRate{}, errors.New("timeout")).Times(2)

		provider := NewBreakerProvider(primary, fixedFallback(), cfg, zap.NewNop())
		for i := 0; i < 3; i++ {
			rate, err := provider.GetExchangeRate(ctx, usd, eur)
			require.NoError(t, err)
			assert.Equal(t, "0.92", rate.Rate().String())
		}
		assert.Equal(t, gobreaker.StateOpen, provider.State())
		primary.AssertNumberOfCalls(t, "GetExchangeRate", 2)
	})

	t.Run("Unknown pair is not found and does not trip", func(t *testing.T) {
		primary := new(MockProvider)
		primary.On("GetExchangeRate", ctx, usd, eur).
			Return(domain.ExchangeRate{}, &domain.NotFoundError{Resource: "exchange rate", ID: "USD/EUR"})

		provider := NewBreakerProvider(primary, fixedFallback(), cfg, zap.NewNop())
		for i := 0; i < 3; i++ {
			_, err := provider.GetExchangeRate(ctx, usd, eur)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		}
		assert.Equal(t, gobreaker.StateClosed, provider.State())
	})

	t.Run("GetAllRates falls back", func(t *testing.T) {
		primary := new(MockProvider)
		primary.On("GetAllRates", ctx, usd).Return(nil, errors.New("boom"))

		provider := NewBreakerProvider(primary, fixedFallback(), cfg, zap.NewNop())
		rates, err := provider.GetAllRates(ctx, usd)
		require.NoError(t, err)
		assert.Equal(t, "0.92", rates["EUR"].String())
	})
}

func stringify(rates map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(rates))
	for k, v := range rates {
		out[k] = v.String()
	}
	return out
}
