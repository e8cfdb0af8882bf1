package storage

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Observation is one refresh cycle in which every tracked asset produced a
// premium.
type Observation struct {
	CycleID   uuid.UUID
	Timestamp time.Time
	Premiums  map[string]decimal.Decimal
}

// Premium returns the recorded premium for symbol.
func (o Observation) Premium(symbol string) (decimal.Decimal, bool) {
	p, ok := o.Premiums[symbol]
	return p, ok
}

// Symbols lists the recorded assets in lexical order.
func (o Observation) Symbols() []string {
	symbols := make([]string, 0, len(o.Premiums))
	for s := range o.Premiums {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (o Observation) clone() Observation {
	premiums := make(map[string]decimal.Decimal, len(o.Premiums))
	for k, v := range o.Premiums {
		premiums[k] = v
	}
	o.Premiums = premiums
	return o
}
