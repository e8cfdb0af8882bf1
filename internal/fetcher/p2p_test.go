package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func listingsHandler(t *testing.T, prices []string, seen *searchRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != p2pSearchPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Fatalf("decode request: %v", err)
			}
		}
		data := make([]map[string]any, 0, len(prices))
		for _, p := range prices {
			data = append(data, map[string]any{"adv": map[string]string{"price": p, "asset": "USDT"}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "000000", "data": data, "success": true})
	}
}

func newTestP2P(url string) *P2P {
	return NewP2P(P2POptions{BaseURL: url, Fiat: "INR", Timeout: time.Second, UserAgent: "test"}, noopLogger())
}

func TestP2PFetchReturnsMinimumPrice(t *testing.T) {
	var seen searchRequest
	srv := httptest.NewServer(listingsHandler(t, []string{"5", "3", "9"}, &seen))
	defer srv.Close()

	price, err := newTestP2P(srv.URL).FetchLocalPrice(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3, got %s", price)
	}

	if seen.Asset != "USDT" || seen.Fiat != "INR" || seen.TradeType != "SELL" {
		t.Fatalf("unexpected request payload: %+v", seen)
	}
	if seen.Page != 1 || seen.Rows != MaxListings {
		t.Fatalf("expected page 1 with %d rows, got %+v", MaxListings, seen)
	}
}

func TestP2PFetchConsidersFirstPageOnly(t *testing.T) {
	prices := []string{"91", "92", "93", "94", "95", "96", "97", "98", "99", "90.5", "10"}
	srv := httptest.NewServer(listingsHandler(t, prices, nil))
	defer srv.Close()

	price, err := newTestP2P(srv.URL).FetchLocalPrice(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("90.5")) {
		t.Fatalf("listing beyond the first %d must be ignored, got %s", MaxListings, price)
	}
}

func TestP2PFetchEmptyListings(t *testing.T) {
	srv := httptest.NewServer(listingsHandler(t, nil, nil))
	defer srv.Close()

	if _, err := newTestP2P(srv.URL).FetchLocalPrice(context.Background(), "BTC"); err == nil {
		t.Fatal("empty listings should fail")
	}
}

func TestP2PFetchMalformedPrice(t *testing.T) {
	srv := httptest.NewServer(listingsHandler(t, []string{"5", "n/a"}, nil))
	defer srv.Close()

	if _, err := newTestP2P(srv.URL).FetchLocalPrice(context.Background(), "BTC"); err == nil {
		t.Fatal("malformed price should fail")
	}
}

func TestP2PFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "slow down"})
	}))
	defer srv.Close()

	if _, err := newTestP2P(srv.URL).FetchLocalPrice(context.Background(), "ETH"); err == nil {
		t.Fatal("HTTP 429 should fail")
	}
}

func TestP2PFetchMissingConfig(t *testing.T) {
	p := NewP2P(P2POptions{}, noopLogger())
	if _, err := p.FetchLocalPrice(context.Background(), "USDT"); err == nil {
		t.Fatal("missing fiat should fail")
	}
	if _, err := newTestP2P("http://localhost").FetchLocalPrice(context.Background(), ""); err == nil {
		t.Fatal("missing asset should fail")
	}
}
