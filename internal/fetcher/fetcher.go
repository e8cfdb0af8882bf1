package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// ExchangeRateFetcher retrieves the USD to local-currency rate.
type ExchangeRateFetcher interface {
	FetchExchangeRate(ctx context.Context) (decimal.Decimal, error)
}

// LocalPriceFetcher retrieves the best peer-to-peer sell price for an asset
// in local currency.
type LocalPriceFetcher interface {
	FetchLocalPrice(ctx context.Context, asset string) (decimal.Decimal, error)
}

// SpotPriceFetcher retrieves the global USD spot price for an upstream id.
type SpotPriceFetcher interface {
	FetchSpotPrice(ctx context.Context, spotID string) (decimal.Decimal, error)
}

const defaultUserAgent = "premiumwatch/1.0"

func setHeaders(req *http.Request, userAgent string) {
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
}

// doJSON executes req and decodes a 2xx JSON body into out.
func doJSON(client *http.Client, req *http.Request, source string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseHTTPError(source, resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", source, err)
	}
	return nil
}

type errorResponse struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  struct {
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

func parseHTTPError(source string, status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Error)
		}
		if apiErr.Status.ErrorMessage != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Status.ErrorMessage)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("%s api error (%d): %s", source, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s api error (%d)", source, status)
}
