package premium

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDataUnavailable marks a value that could not be obtained or computed in
// the current refresh cycle. Network failures, malformed payloads and
// division guards all collapse into it.
var ErrDataUnavailable = errors.New("data unavailable")

// Places is the number of decimal places a premium is rounded to.
const Places int32 = 2

var hundred = decimal.NewFromInt(100)

// StableGlobalPrice is the USD price assumed for stable-value assets.
var StableGlobalPrice = decimal.NewFromInt(1)

// Present wraps d as an available value.
func Present(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Absent returns the unavailable marker.
func Absent() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// Calculate returns ((local / fx) - global) / global * 100 rounded to two
// places. The result is absent when any input is absent or when global or fx
// is zero.
func Calculate(local, global, fx decimal.NullDecimal) decimal.NullDecimal {
	if !local.Valid || !global.Valid || !fx.Valid {
		return Absent()
	}
	if global.Decimal.IsZero() || fx.Decimal.IsZero() {
		return Absent()
	}

	usd := local.Decimal.Div(fx.Decimal)
	pct := usd.Sub(global.Decimal).Div(global.Decimal).Mul(hundred)
	return Present(pct.Round(Places))
}

// Result pairs an asset symbol with its computed premium.
type Result struct {
	Symbol  string
	Premium decimal.NullDecimal
}

// AllPresent reports whether every result carries a premium.
func AllPresent(results []Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Premium.Valid {
			return false
		}
	}
	return true
}
