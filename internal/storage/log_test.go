package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func observationAt(ts time.Time, premium string) Observation {
	return Observation{
		CycleID:   uuid.New(),
		Timestamp: ts,
		Premiums:  map[string]decimal.Decimal{"USDT": decimal.RequireFromString(premium)},
	}
}

func TestMemoryLogAppendPreservesOrder(t *testing.T) {
	log := NewMemoryLog()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(observationAt(base.Add(time.Duration(i)*time.Minute), "1.5")))
	}

	all := log.List()
	require.Len(t, all, 3)
	require.Equal(t, 3, log.Count())
	for i, obs := range all {
		require.True(t, obs.Timestamp.Equal(base.Add(time.Duration(i)*time.Minute)))
	}
}

func TestMemoryLogRejectsEmptyObservation(t *testing.T) {
	log := NewMemoryLog()
	require.ErrorIs(t, log.Append(Observation{Timestamp: time.Now()}), ErrIncompleteObservation)
	require.Zero(t, log.Count())
}

func TestMemoryLogEntriesAreImmutable(t *testing.T) {
	log := NewMemoryLog()
	obs := observationAt(time.Now(), "2")
	require.NoError(t, log.Append(obs))

	obs.Premiums["USDT"] = decimal.NewFromInt(99)
	listed := log.List()
	listed[0].Premiums["USDT"] = decimal.NewFromInt(77)

	got, ok := log.List()[0].Premium("USDT")
	require.True(t, ok)
	require.True(t, got.Equal(decimal.NewFromInt(2)))
}

func TestMemoryLogListRecent(t *testing.T) {
	log := NewMemoryLog()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(observationAt(base.Add(time.Duration(i)*time.Minute), "1")))
	}

	recent := log.ListRecent(2)
	require.Len(t, recent, 2)
	require.True(t, recent[0].Timestamp.Equal(base.Add(4*time.Minute)))
	require.True(t, recent[1].Timestamp.Equal(base.Add(3*time.Minute)))

	require.Len(t, log.ListRecent(0), 5)
	require.Len(t, log.ListRecent(50), 5)
}

func TestMemoryLogListBetween(t *testing.T) {
	log := NewMemoryLog()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(observationAt(base.Add(time.Duration(i)*time.Minute), "1")))
	}

	window := log.ListBetween(base.Add(time.Minute), base.Add(3*time.Minute))
	require.Len(t, window, 2)
	require.True(t, window[0].Timestamp.Equal(base.Add(time.Minute)))
	require.True(t, window[1].Timestamp.Equal(base.Add(2*time.Minute)))
}

func TestMemoryLogConcurrentAppends(t *testing.T) {
	log := NewMemoryLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = log.Append(observationAt(time.Now(), "1"))
			_ = log.List()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, log.Count())
}

func TestObservationSymbolsSorted(t *testing.T) {
	obs := Observation{Premiums: map[string]decimal.Decimal{
		"USDT": decimal.NewFromInt(1),
		"BTC":  decimal.NewFromInt(2),
		"ETH":  decimal.NewFromInt(3),
	}}
	require.Equal(t, []string{"BTC", "ETH", "USDT"}, obs.Symbols())
}
