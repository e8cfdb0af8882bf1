package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"p2p-premium/internal/config"
	"p2p-premium/internal/premium"
	"p2p-premium/internal/service"
	"p2p-premium/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		Tracking: config.TrackingConfig{Fiat: "INR", Assets: config.DefaultAssets()},
		Alerting: config.AlertingConfig{Enabled: true, ThresholdPct: 5, Cooldown: time.Minute},
		Export:   config.ExportConfig{MaxDataPoints: 100},
	}
}

func testApp(out *bytes.Buffer) *App {
	a := NewApp(testConfig(), zerolog.Nop())
	a.Out = out
	return a
}

func observations(n int) []storage.Observation {
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	out := make([]storage.Observation, n)
	for i := range out {
		out[i] = storage.Observation{
			CycleID:   uuid.New(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Premiums: map[string]decimal.Decimal{
				"USDT": decimal.NewFromFloat(8.5 + float64(i)/10),
				"BTC":  decimal.NewFromFloat(0.4 - float64(i)/20),
				"ETH":  decimal.NewFromFloat(1.1 + float64(i)/5),
			},
		}
	}
	return out
}

func TestWriteObservationsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "premiums.csv")
	obs := observations(3)

	require.NoError(t, writeObservationsCSV(path, []string{"USDT", "BTC", "ETH"}, obs))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, []string{"timestamp", "cycle_id", "USDT_premium_pct", "BTC_premium_pct", "ETH_premium_pct"}, rows[0])
	require.Equal(t, "2026-10-18T12:00:00Z", rows[1][0])
	require.Equal(t, obs[0].CycleID.String(), rows[1][1])
	require.Equal(t, "8.50", rows[1][2])
	require.Equal(t, "0.40", rows[1][3])
}

func TestWriteObservationsPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trend.png")

	require.NoError(t, writeObservationsPNG(path, "INR", []string{"USDT", "BTC", "ETH"}, observations(4)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestWriteObservationsPNGNeedsThreePoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trend.png")
	require.Error(t, writeObservationsPNG(path, "INR", []string{"USDT"}, observations(2)))
}

func TestDownsampleObservations(t *testing.T) {
	obs := observations(10)

	require.Len(t, downsampleObservations(obs, 0), 10)
	require.Len(t, downsampleObservations(obs, 20), 10)

	picked := downsampleObservations(obs, 4)
	require.Len(t, picked, 4)
	require.Equal(t, obs[0].CycleID, picked[0].CycleID)
	require.Equal(t, obs[9].CycleID, picked[3].CycleID)

	last := downsampleObservations(obs, 1)
	require.Len(t, last, 1)
	require.Equal(t, obs[9].CycleID, last[0].CycleID)
}

func TestPrintReportShowsUnavailable(t *testing.T) {
	var buf bytes.Buffer
	report := service.CycleReport{
		CycleID:      uuid.New(),
		Timestamp:    time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		Fiat:         "INR",
		ExchangeRate: premium.Present(decimal.RequireFromString("83.2")),
		Assets: []service.AssetReport{
			{Symbol: "USDT", Stable: true, LocalPrice: premium.Present(decimal.RequireFromString("90.5")), GlobalPrice: premium.Present(decimal.NewFromInt(1)), Premium: premium.Present(decimal.RequireFromString("8.77"))},
			{Symbol: "BTC", LocalPrice: premium.Present(decimal.NewFromInt(7500000))},
		},
	}

	require.NoError(t, PrintReport(&buf, report))

	out := buf.String()
	require.Contains(t, out, "USD/INR: 83.2000")
	require.Contains(t, out, "8.77")
	require.Contains(t, out, "1.00 (fixed)")
	require.Contains(t, out, service.Unavailable)
	require.Contains(t, out, "discarded")
}

func TestSimulateRecordsAndAlerts(t *testing.T) {
	var buf bytes.Buffer
	a := testApp(&buf)

	report, err := a.Simulate(context.Background(), SimulateOptions{
		ExchangeRate: premium.Present(decimal.RequireFromString("83.2")),
		Local: map[string]decimal.Decimal{
			"USDT": decimal.RequireFromString("90.5"),
			"BTC":  decimal.NewFromInt(7500000),
			"ETH":  decimal.NewFromInt(300000),
		},
		Global: map[string]decimal.Decimal{
			"BTC": decimal.NewFromInt(90000),
			"ETH": decimal.NewFromInt(3600),
		},
	})
	require.NoError(t, err)
	require.True(t, report.Recorded)

	usdt, ok := report.Asset("USDT")
	require.True(t, ok)
	require.Equal(t, "8.77", usdt.Premium.Decimal.StringFixed(2))
	require.Contains(t, buf.String(), "alert: USDT premium 8.77%")
}

func TestSimulateMissingInputs(t *testing.T) {
	var buf bytes.Buffer
	a := testApp(&buf)

	report, err := a.Simulate(context.Background(), SimulateOptions{
		Local: map[string]decimal.Decimal{"USDT": decimal.RequireFromString("90.5")},
	})
	require.NoError(t, err)
	require.False(t, report.Recorded)
	require.False(t, report.ExchangeRate.Valid)
	require.Contains(t, buf.String(), service.Unavailable)
	require.NotContains(t, buf.String(), "alert:")
}

func TestPresenterWritesTrendOnceReady(t *testing.T) {
	var buf bytes.Buffer
	a := testApp(&buf)
	dir := t.TempDir()
	opts := RunOptions{
		CSVPath:   filepath.Join(dir, "p.csv"),
		PNGPath:   filepath.Join(dir, "p.png"),
		MaxPoints: 100,
		Print:     true,
	}
	present := a.presenter(opts)

	early := service.CycleReport{CycleID: uuid.New(), Fiat: "INR", History: observations(2)}
	require.NoError(t, present(context.Background(), early))
	_, err := os.Stat(opts.CSVPath)
	require.True(t, os.IsNotExist(err))

	ready := service.CycleReport{CycleID: uuid.New(), Fiat: "INR", Recorded: true, History: observations(3)}
	require.NoError(t, present(context.Background(), ready))
	_, err = os.Stat(opts.CSVPath)
	require.NoError(t, err)
	_, err = os.Stat(opts.PNGPath)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "recorded")
}
