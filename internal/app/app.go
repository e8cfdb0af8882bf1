package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"p2p-premium/internal/alerting"
	"p2p-premium/internal/config"
	"p2p-premium/internal/fetcher"
	"p2p-premium/internal/retry"
	"p2p-premium/internal/scheduler"
	"p2p-premium/internal/service"
	"p2p-premium/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

type fetchers struct {
	fx    fetcher.ExchangeRateFetcher
	local fetcher.LocalPriceFetcher
	spot  fetcher.SpotPriceFetcher
}

func (a *App) newFetchers() fetchers {
	timeout := a.Config.Fetch.RequestTimeout
	ua := a.Config.Fetch.UserAgent

	return fetchers{
		fx: fetcher.NewExchangeRate(fetcher.ExchangeRateOptions{
			BaseURL:   a.Config.FX.BaseURL,
			Currency:  a.Config.Tracking.Fiat,
			Timeout:   timeout,
			UserAgent: ua,
		}, a.Logger),
		local: fetcher.NewP2P(fetcher.P2POptions{
			BaseURL:   a.Config.P2P.BaseURL,
			Fiat:      a.Config.Tracking.Fiat,
			PageSize:  a.Config.P2P.PageSize,
			Timeout:   timeout,
			UserAgent: ua,
		}, a.Logger),
		spot: fetcher.NewSpot(fetcher.SpotOptions{
			BaseURL:   a.Config.Spot.BaseURL,
			Timeout:   timeout,
			UserAgent: ua,
		}, a.Logger),
	}
}

func (a *App) newRetrier() *retry.Retrier {
	return retry.New(retry.Policy{
		Attempts: a.Config.Fetch.RetryAttempts,
		Delay:    a.Config.Fetch.RetryDelay,
		Timeout:  a.Config.Fetch.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// RunOptions configure the long-running refresh loop.
type RunOptions struct {
	CSVPath   string
	PNGPath   string
	MaxPoints int
	Print     bool
}

// Run executes the refresh loop until interrupted.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToInterval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		Immediate:    a.Config.Scheduler.Immediate,
	}, a.Logger)
	if err != nil {
		return err
	}

	if opts.CSVPath == "" {
		opts.CSVPath = a.Config.Export.CSVPath
	}
	if opts.PNGPath == "" {
		opts.PNGPath = a.Config.Export.PNGPath
	}
	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	f := a.newFetchers()
	svc, err := service.New(a.Config, service.Deps{
		Scheduler:    sched,
		ExchangeRate: f.fx,
		LocalPrice:   f.local,
		SpotPrice:    f.spot,
		Retrier:      a.newRetrier(),
		Log:          storage.NewMemoryLog(),
		Notifier:     a.newNotifier(),
		Presenter:    a.presenter(opts),
	}, a.Logger)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Dur("interval", a.Config.Scheduler.Interval).
		Str("fiat", a.Config.Tracking.Fiat).
		Strs("assets", a.symbols()).
		Msg("starting premium tracker")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("tracker terminated with error")
		return err
	}

	a.Logger.Info().Msg("premium tracker stopped")
	return nil
}

// Once runs a single refresh cycle and prints the result.
func (a *App) Once(ctx context.Context) error {
	f := a.newFetchers()
	svc, err := service.New(a.Config, service.Deps{
		ExchangeRate: f.fx,
		LocalPrice:   f.local,
		SpotPrice:    f.spot,
		Retrier:      a.newRetrier(),
		Log:          storage.NewMemoryLog(),
	}, a.Logger)
	if err != nil {
		return err
	}

	report := svc.RunCycle(ctx)
	return PrintReport(a.Out, report)
}

func (a *App) presenter(opts RunOptions) service.Presenter {
	symbols := a.symbols()
	return func(ctx context.Context, report service.CycleReport) error {
		if opts.Print {
			if err := PrintReport(a.Out, report); err != nil {
				return err
			}
		}
		if !report.ChartReady() {
			return nil
		}

		points := downsampleObservations(report.History, opts.MaxPoints)
		if opts.CSVPath != "" {
			if err := writeObservationsCSV(opts.CSVPath, symbols, points); err != nil {
				return err
			}
		}
		if opts.PNGPath != "" {
			if err := writeObservationsPNG(opts.PNGPath, a.Config.Tracking.Fiat, symbols, points); err != nil {
				return err
			}
		}
		return nil
	}
}

func (a *App) symbols() []string {
	out := make([]string, 0, len(a.Config.Tracking.Assets))
	for _, asset := range a.Config.Tracking.Assets {
		out = append(out, asset.Symbol)
	}
	return out
}
