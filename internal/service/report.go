package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"p2p-premium/internal/premium"
	"p2p-premium/internal/storage"
)

// Unavailable is how an absent value is displayed.
const Unavailable = "unavailable"

// AssetReport is one tracked asset's view of a cycle. Each field is
// independently present or absent.
type AssetReport struct {
	Symbol      string
	Stable      bool
	LocalPrice  decimal.NullDecimal
	GlobalPrice decimal.NullDecimal
	Premium     decimal.NullDecimal
}

// CycleReport is what a refresh cycle hands to the presentation layer.
type CycleReport struct {
	CycleID      uuid.UUID
	Timestamp    time.Time
	Fiat         string
	ExchangeRate decimal.NullDecimal
	Assets       []AssetReport
	// Recorded is true when the cycle appended an observation.
	Recorded bool
	// History is the full observation log, set once it holds MinChartPoints.
	History []storage.Observation
}

// Results lists the premium of every asset.
func (r CycleReport) Results() []premium.Result {
	out := make([]premium.Result, len(r.Assets))
	for i, a := range r.Assets {
		out[i] = premium.Result{Symbol: a.Symbol, Premium: a.Premium}
	}
	return out
}

// Asset looks up the report for symbol.
func (r CycleReport) Asset(symbol string) (AssetReport, bool) {
	for _, a := range r.Assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return AssetReport{}, false
}

// ChartReady reports whether enough history exists to draw a trend.
func (r CycleReport) ChartReady() bool {
	return len(r.History) >= MinChartPoints
}

// Format renders v with places decimals or Unavailable.
func Format(v decimal.NullDecimal, places int32) string {
	return formatNull(v, places)
}
