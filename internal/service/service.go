package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"p2p-premium/internal/alerting"
	"p2p-premium/internal/config"
	"p2p-premium/internal/fetcher"
	"p2p-premium/internal/premium"
	"p2p-premium/internal/retry"
	"p2p-premium/internal/scheduler"
	"p2p-premium/internal/storage"
)

// MinChartPoints is how many observations the log must hold before the
// trend history is handed to the presentation layer.
const MinChartPoints = 3

// Presenter receives the outcome of every refresh cycle.
type Presenter func(ctx context.Context, report CycleReport) error

// Deps are the collaborators of a Service. Scheduler, Notifier and Presenter
// are optional.
type Deps struct {
	Scheduler    *scheduler.Scheduler
	ExchangeRate fetcher.ExchangeRateFetcher
	LocalPrice   fetcher.LocalPriceFetcher
	SpotPrice    fetcher.SpotPriceFetcher
	Retrier      *retry.Retrier
	Log          storage.ObservationStore
	Notifier     alerting.Notifier
	Presenter    Presenter
	// Clock stamps recorded observations; defaults to time.Now in UTC.
	Clock func() time.Time
}

// Service runs refresh cycles: fetch, compute, record, present.
type Service struct {
	scheduler *scheduler.Scheduler
	fx        fetcher.ExchangeRateFetcher
	local     fetcher.LocalPriceFetcher
	spot      fetcher.SpotPriceFetcher
	retrier   *retry.Retrier
	log       storage.ObservationStore
	notifier  alerting.Notifier
	present   Presenter
	now       func() time.Time
	logger    zerolog.Logger

	fiat      string
	assets    []config.AssetConfig
	threshold decimal.Decimal
	channels  []string
	alertsOn  bool
	cooldown  *alerting.Cooldown

	// one cycle at a time
	mu sync.Mutex
}

// New constructs the refresh service.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) (*Service, error) {
	if deps.ExchangeRate == nil || deps.LocalPrice == nil || deps.SpotPrice == nil {
		return nil, errors.New("service: exchange rate, local price and spot price fetchers are required")
	}
	if deps.Log == nil {
		return nil, errors.New("service: observation log is required")
	}
	if len(cfg.Tracking.Assets) == 0 {
		return nil, errors.New("service: no tracked assets")
	}

	retrier := deps.Retrier
	if retrier == nil {
		retrier = retry.New(retry.Policy{
			Attempts: cfg.Fetch.RetryAttempts,
			Delay:    cfg.Fetch.RetryDelay,
			Timeout:  cfg.Fetch.RequestTimeout,
		}, logger)
	}

	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	threshold := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.ThresholdPct > 0 {
		threshold = decimal.NewFromFloat(cfg.Alerting.ThresholdPct)
	}

	assets := make([]config.AssetConfig, len(cfg.Tracking.Assets))
	copy(assets, cfg.Tracking.Assets)

	return &Service{
		scheduler: deps.Scheduler,
		fx:        deps.ExchangeRate,
		local:     deps.LocalPrice,
		spot:      deps.SpotPrice,
		retrier:   retrier,
		log:       deps.Log,
		notifier:  deps.Notifier,
		present:   deps.Presenter,
		now:       clock,
		logger:    logger.With().Str("component", "service").Logger(),
		fiat:      cfg.Tracking.Fiat,
		assets:    assets,
		threshold: threshold,
		channels:  cfg.Alerting.Channels,
		alertsOn:  cfg.Alerting.Enabled,
		cooldown:  alerting.NewCooldown(cfg.Alerting.Cooldown),
	}, nil
}

// Log exposes the observation log the service appends to.
func (s *Service) Log() storage.ObservationStore {
	return s.log
}

// Run begins the refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.Tick)
}

// Tick runs one cycle and hands the report to the presenter.
func (s *Service) Tick(ctx context.Context, at time.Time) error {
	report := s.RunCycle(ctx)
	if s.present == nil {
		return nil
	}
	if err := s.present(ctx, report); err != nil {
		return fmt.Errorf("present cycle %s: %w", report.CycleID, err)
	}
	return nil
}

// RunCycle fetches this cycle's inputs, computes every premium and records an
// observation when all of them are present. Missing data never aborts the
// cycle; it shows up as absent fields in the report.
func (s *Service) RunCycle(ctx context.Context) CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := CycleReport{
		CycleID: uuid.New(),
		Fiat:    s.fiat,
		Assets:  make([]AssetReport, len(s.assets)),
	}
	logger := s.logger.With().Str("cycle_id", report.CycleID.String()).Logger()

	report.ExchangeRate = s.fetch(ctx, report.Assets)

	for i := range report.Assets {
		a := &report.Assets[i]
		a.Premium = premium.Calculate(a.LocalPrice, a.GlobalPrice, report.ExchangeRate)
	}

	report.Timestamp = s.now()

	if premium.AllPresent(report.Results()) {
		obs := storage.Observation{
			CycleID:   report.CycleID,
			Timestamp: report.Timestamp,
			Premiums:  make(map[string]decimal.Decimal, len(report.Assets)),
		}
		for _, a := range report.Assets {
			obs.Premiums[a.Symbol] = a.Premium.Decimal
		}
		if err := s.log.Append(obs); err != nil {
			logger.Error().Err(err).Msg("failed to record observation")
		} else {
			report.Recorded = true
		}
	}

	if n := s.log.Count(); n >= MinChartPoints {
		report.History = s.log.List()
	}

	logger.Info().
		Str("fx", formatNull(report.ExchangeRate, 4)).
		Dict("premiums", premiumsDict(report.Assets)).
		Bool("recorded", report.Recorded).
		Int("observations", s.log.Count()).
		Msg("cycle complete")

	if report.Recorded {
		s.dispatchAlerts(ctx, report, logger)
	}

	return report
}

// fetch resolves the exchange rate and every asset's quote concurrently and
// waits for all of them.
func (s *Service) fetch(ctx context.Context, assets []AssetReport) decimal.NullDecimal {
	var g errgroup.Group
	fx := premium.Absent()

	g.Go(func() error {
		rate, err := retry.Do(ctx, s.retrier, "exchange_rate", s.fx.FetchExchangeRate)
		if err == nil {
			fx = premium.Present(rate)
		}
		return nil
	})

	for i, asset := range s.assets {
		assets[i].Symbol = asset.Symbol
		assets[i].Stable = asset.Stable

		g.Go(func() error {
			price, err := retry.Do(ctx, s.retrier, "p2p_price:"+asset.Symbol, func(ctx context.Context) (decimal.Decimal, error) {
				return s.local.FetchLocalPrice(ctx, asset.Symbol)
			})
			if err == nil {
				assets[i].LocalPrice = premium.Present(price)
			}
			return nil
		})

		if asset.Stable {
			assets[i].GlobalPrice = premium.Present(premium.StableGlobalPrice)
			continue
		}
		g.Go(func() error {
			price, err := retry.Do(ctx, s.retrier, "spot_price:"+asset.Symbol, func(ctx context.Context) (decimal.Decimal, error) {
				return s.spot.FetchSpotPrice(ctx, asset.SpotID)
			})
			if err == nil {
				assets[i].GlobalPrice = premium.Present(price)
			}
			return nil
		})
	}

	_ = g.Wait()
	return fx
}

func (s *Service) dispatchAlerts(ctx context.Context, report CycleReport, logger zerolog.Logger) {
	if !s.alertsOn || s.notifier == nil || s.threshold.IsZero() {
		return
	}

	for _, a := range report.Assets {
		if a.Premium.Decimal.Abs().LessThan(s.threshold) {
			continue
		}
		if !s.cooldown.Allow(a.Symbol, report.Timestamp) {
			logger.Debug().Str("symbol", a.Symbol).Msg("alert suppressed by cooldown")
			continue
		}

		note := alerting.Notification{
			CycleID:      report.CycleID.String(),
			Timestamp:    report.Timestamp,
			Symbol:       a.Symbol,
			Fiat:         report.Fiat,
			LocalPrice:   a.LocalPrice.Decimal,
			GlobalPrice:  a.GlobalPrice.Decimal,
			ExchangeRate: report.ExchangeRate.Decimal,
			PremiumPct:   a.Premium.Decimal,
			ThresholdPct: s.threshold,
			Direction:    classifyPremium(a.Premium.Decimal),
			Channels:     s.channels,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			logger.Error().Err(err).Str("symbol", a.Symbol).Msg("failed to dispatch alert")
		}
	}
}

func classifyPremium(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return "premium"
	case -1:
		return "discount"
	default:
		return "flat"
	}
}

func premiumsDict(assets []AssetReport) *zerolog.Event {
	dict := zerolog.Dict()
	for _, a := range assets {
		dict = dict.Str(strings.ToLower(a.Symbol), formatNull(a.Premium, premium.Places))
	}
	return dict
}

func formatNull(v decimal.NullDecimal, places int32) string {
	if !v.Valid {
		return Unavailable
	}
	return v.Decimal.StringFixed(places)
}
