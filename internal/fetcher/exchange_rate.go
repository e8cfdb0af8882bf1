package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	latestRatesPath = "/latest"
	baseCurrencyUSD = "USD"
)

// ExchangeRateOptions parameterise the exchange rate fetcher.
type ExchangeRateOptions struct {
	BaseURL   string
	Currency  string
	Timeout   time.Duration
	UserAgent string
}

// ExchangeRate reads USD rates from a Frankfurter-compatible API.
type ExchangeRate struct {
	opts    ExchangeRateOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewExchangeRate builds a new exchange rate fetcher.
func NewExchangeRate(opts ExchangeRateOptions, logger zerolog.Logger) *ExchangeRate {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.frankfurter.app"
	}

	return &ExchangeRate{
		opts:    opts,
		logger:  logger.With().Str("component", "fx_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchExchangeRate returns units of the configured currency per 1 USD.
func (e *ExchangeRate) FetchExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	currency := strings.ToUpper(strings.TrimSpace(e.opts.Currency))
	if currency == "" {
		return decimal.Decimal{}, errors.New("exchange rate currency not configured")
	}

	query := url.Values{}
	query.Set("from", baseCurrencyUSD)
	query.Set("to", currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+latestRatesPath+"?"+query.Encode(), nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	setHeaders(req, e.opts.UserAgent)

	var res ratesResponse
	if err := doJSON(e.client, req, "fx", &res); err != nil {
		return decimal.Decimal{}, err
	}

	rate, ok := res.Rates[currency]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("rate for %s missing from response", currency)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("rate for %s not positive: %s", currency, rate)
	}

	e.logger.Debug().Str("currency", currency).Str("rate", rate.String()).Msg("exchange rate fetched")
	return rate, nil
}

type ratesResponse struct {
	Amount decimal.Decimal            `json:"amount"`
	Base   string                     `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

var _ ExchangeRateFetcher = (*ExchangeRate)(nil)
