package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	p2pSearchPath    = "/bapi/c2c/v2/friendly/c2c/adv/search"
	p2pTradeTypeSell = "SELL"
)

// MaxListings caps how many listings of the first page are considered.
const MaxListings = 10

// P2POptions parameterise the peer-to-peer listings fetcher.
type P2POptions struct {
	BaseURL   string
	Fiat      string
	PageSize  int
	Timeout   time.Duration
	UserAgent string
}

// P2P queries a Binance-style C2C listings search for the cheapest sell ad.
type P2P struct {
	opts    P2POptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewP2P constructs a P2P fetcher.
func NewP2P(opts P2POptions, logger zerolog.Logger) *P2P {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxListings {
		opts.PageSize = MaxListings
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://p2p.binance.com"
	}

	return &P2P{
		opts:    opts,
		logger:  logger.With().Str("component", "p2p_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchLocalPrice returns the minimum ask across the first page of sell
// listings for asset, priced in the configured fiat currency.
func (p *P2P) FetchLocalPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	if asset == "" {
		return decimal.Decimal{}, errors.New("asset required")
	}
	if p.opts.Fiat == "" {
		return decimal.Decimal{}, errors.New("fiat currency not configured")
	}

	body, err := json.Marshal(searchRequest{
		Asset:     asset,
		Fiat:      p.opts.Fiat,
		TradeType: p2pTradeTypeSell,
		Page:      1,
		Rows:      p.opts.PageSize,
		PayTypes:  []string{},
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p2pSearchPath, bytes.NewReader(body))
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	setHeaders(req, p.opts.UserAgent)

	var res searchResponse
	if err := doJSON(p.client, req, "p2p", &res); err != nil {
		return decimal.Decimal{}, err
	}

	price, err := minListingPrice(res.Data, p.opts.PageSize)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s/%s: %w", asset, p.opts.Fiat, err)
	}

	p.logger.Debug().Str("asset", asset).Str("fiat", p.opts.Fiat).
		Int("listings", len(res.Data)).
		Str("price", price.String()).
		Msg("p2p price fetched")
	return price, nil
}

func minListingPrice(listings []listing, limit int) (decimal.Decimal, error) {
	if len(listings) == 0 {
		return decimal.Decimal{}, errors.New("no sell listings returned")
	}
	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}

	var best decimal.Decimal
	for i, l := range listings {
		price, err := decimal.NewFromString(strings.TrimSpace(l.Adv.Price))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse listing %d price %q: %w", i, l.Adv.Price, err)
		}
		if i == 0 || price.LessThan(best) {
			best = price
		}
	}
	return best, nil
}

type searchRequest struct {
	Asset         string   `json:"asset"`
	Fiat          string   `json:"fiat"`
	TradeType     string   `json:"tradeType"`
	Page          int      `json:"page"`
	Rows          int      `json:"rows"`
	PayTypes      []string `json:"payTypes"`
	PublisherType *string  `json:"publisherType"`
}

type searchResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    []listing `json:"data"`
	Success bool      `json:"success"`
}

type listing struct {
	Adv struct {
		Price string `json:"price"`
		Asset string `json:"asset"`
	} `json:"adv"`
}

var _ LocalPriceFetcher = (*P2P)(nil)
