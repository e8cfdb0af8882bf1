package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"p2p-premium/internal/alerting"
	"p2p-premium/internal/fetcher"
	"p2p-premium/internal/premium"
	"p2p-premium/internal/retry"
	"p2p-premium/internal/service"
	"p2p-premium/internal/storage"
)

// SimulateOptions are the static inputs of an offline cycle. Assets missing
// from Local or Global are treated as unavailable.
type SimulateOptions struct {
	ExchangeRate decimal.NullDecimal
	Local        map[string]decimal.Decimal
	Global       map[string]decimal.Decimal
}

// Simulate runs one cycle against static prices and prints the result along
// with any alert it would raise.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) (service.CycleReport, error) {
	spotIDs := make(map[string]string, len(a.Config.Tracking.Assets))
	for _, asset := range a.Config.Tracking.Assets {
		spotIDs[asset.SpotID] = asset.Symbol
	}

	notifier := a.newNotifier()
	recorder := &alerting.Recorder{}
	if notifier == nil {
		notifier = recorder
	}

	svc, err := service.New(a.Config, service.Deps{
		ExchangeRate: staticExchangeRate{rate: opts.ExchangeRate},
		LocalPrice:   staticLocalPrices(opts.Local),
		SpotPrice:    staticSpotPrices{bySymbol: opts.Global, symbolFor: spotIDs},
		Retrier:      retry.New(retry.Policy{Attempts: 1}, a.Logger),
		Log:          storage.NewMemoryLog(),
		Notifier:     notifier,
	}, a.Logger)
	if err != nil {
		return service.CycleReport{}, err
	}

	report := svc.RunCycle(ctx)
	if err := PrintReport(a.Out, report); err != nil {
		return report, err
	}
	for _, note := range recorder.Notifications() {
		fmt.Fprintf(a.Out, "alert: %s %s %s%% (threshold %s%%)\n",
			note.Symbol, note.Direction, note.PremiumPct.StringFixed(2), note.ThresholdPct.StringFixed(2))
	}
	return report, nil
}

type staticExchangeRate struct {
	rate decimal.NullDecimal
}

func (s staticExchangeRate) FetchExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	if !s.rate.Valid {
		return decimal.Decimal{}, premium.ErrDataUnavailable
	}
	return s.rate.Decimal, nil
}

type staticLocalPrices map[string]decimal.Decimal

func (s staticLocalPrices) FetchLocalPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	p, ok := s[asset]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", asset, premium.ErrDataUnavailable)
	}
	return p, nil
}

type staticSpotPrices struct {
	bySymbol  map[string]decimal.Decimal
	symbolFor map[string]string
}

func (s staticSpotPrices) FetchSpotPrice(ctx context.Context, spotID string) (decimal.Decimal, error) {
	p, ok := s.bySymbol[s.symbolFor[spotID]]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", spotID, premium.ErrDataUnavailable)
	}
	return p, nil
}

var (
	_ fetcher.ExchangeRateFetcher = staticExchangeRate{}
	_ fetcher.LocalPriceFetcher   = staticLocalPrices(nil)
	_ fetcher.SpotPriceFetcher    = staticSpotPrices{}
)
