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

const spotPricePath = "/simple/price"

// SpotOptions parameterise the spot price fetcher.
type SpotOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Spot fetches global USD prices from a CoinGecko-compatible API.
type Spot struct {
	opts    SpotOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewSpot constructs a spot price fetcher.
func NewSpot(opts SpotOptions, logger zerolog.Logger) *Spot {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &Spot{
		opts:    opts,
		logger:  logger.With().Str("component", "spot_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchSpotPrice returns the USD price reported for spotID.
func (s *Spot) FetchSpotPrice(ctx context.Context, spotID string) (decimal.Decimal, error) {
	if spotID == "" {
		return decimal.Decimal{}, errors.New("spot id required")
	}

	query := url.Values{}
	query.Set("ids", spotID)
	query.Set("vs_currencies", "usd")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+spotPricePath+"?"+query.Encode(), nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	setHeaders(req, s.opts.UserAgent)

	var res map[string]map[string]decimal.Decimal
	if err := doJSON(s.client, req, "spot", &res); err != nil {
		return decimal.Decimal{}, err
	}

	quotes, ok := res[spotID]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("spot price for %q missing from response", spotID)
	}
	price, ok := quotes["usd"]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("usd quote for %q missing from response", spotID)
	}

	s.logger.Debug().Str("spot_id", spotID).Str("price", price.String()).Msg("spot price fetched")
	return price, nil
}

var _ SpotPriceFetcher = (*Spot)(nil)
