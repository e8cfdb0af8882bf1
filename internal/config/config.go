package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"p2p-premium/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	P2P       P2PConfig       `mapstructure:"p2p"`
	Spot      SpotConfig      `mapstructure:"spot"`
	FX        FXConfig        `mapstructure:"fx"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SchedulerConfig governs refresh cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	Immediate       bool          `mapstructure:"immediate"`
}

// TrackingConfig lists the assets whose premium is tracked.
type TrackingConfig struct {
	Fiat   string        `mapstructure:"fiat"`
	Assets []AssetConfig `mapstructure:"assets"`
}

// AssetConfig describes one tracked asset.
type AssetConfig struct {
	Symbol string `mapstructure:"symbol"`
	SpotID string `mapstructure:"spot_id"`
	Stable bool   `mapstructure:"stable"`
}

// FetchConfig is the retry policy shared by every upstream call.
type FetchConfig struct {
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// P2PConfig captures the peer-to-peer listings endpoint.
type P2PConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	PageSize int    `mapstructure:"page_size"`
}

// SpotConfig captures the spot price endpoint.
type SpotConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// FXConfig captures the exchange rate endpoint.
type FXConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	ThresholdPct float64        `mapstructure:"threshold_pct"`
	Cooldown     time.Duration  `mapstructure:"cooldown"`
	Channels     []string       `mapstructure:"channels"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram bot delivery settings.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets where the trend view is written during `run`.
type ExportConfig struct {
	CSVPath       string `mapstructure:"csv_path"`
	PNGPath       string `mapstructure:"png_path"`
	MaxDataPoints int    `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PREMIUMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// DefaultAssets is the tracked set used when none is configured.
func DefaultAssets() []AssetConfig {
	return []AssetConfig{
		{Symbol: "USDT", SpotID: "tether", Stable: true},
		{Symbol: "BTC", SpotID: "bitcoin"},
		{Symbol: "ETH", SpotID: "ethereum"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "premiumwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.align_to_interval", false)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.immediate", true)

	v.SetDefault("tracking.fiat", "INR")
	assets := make([]map[string]any, 0, 3)
	for _, a := range DefaultAssets() {
		assets = append(assets, map[string]any{"symbol": a.Symbol, "spot_id": a.SpotID, "stable": a.Stable})
	}
	v.SetDefault("tracking.assets", assets)

	v.SetDefault("fetch.retry_attempts", 3)
	v.SetDefault("fetch.retry_delay", "2s")
	v.SetDefault("fetch.request_timeout", "5s")
	v.SetDefault("fetch.user_agent", "premiumwatch/1.0")

	v.SetDefault("p2p.base_url", "https://p2p.binance.com")
	v.SetDefault("p2p.page_size", 10)
	v.SetDefault("spot.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("fx.base_url", "https://api.frankfurter.app")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold_pct", 5.0)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 1440)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func (c *Config) normalise() {
	c.Tracking.Fiat = strings.ToUpper(strings.TrimSpace(c.Tracking.Fiat))
	for i := range c.Tracking.Assets {
		c.Tracking.Assets[i].Symbol = strings.ToUpper(strings.TrimSpace(c.Tracking.Assets[i].Symbol))
		c.Tracking.Assets[i].SpotID = strings.TrimSpace(c.Tracking.Assets[i].SpotID)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Fetch.RetryAttempts <= 0 {
		return fmt.Errorf("fetch.retry_attempts must be greater than zero")
	}
	if c.Fetch.RetryDelay < 0 {
		return fmt.Errorf("fetch.retry_delay cannot be negative")
	}
	if c.Fetch.RequestTimeout <= 0 {
		return fmt.Errorf("fetch.request_timeout must be greater than zero")
	}
	if c.P2P.PageSize <= 0 || c.P2P.PageSize > 10 {
		return fmt.Errorf("p2p.page_size must be between 1 and 10")
	}
	if c.Tracking.Fiat == "" {
		return fmt.Errorf("tracking.fiat is required")
	}
	if len(c.Tracking.Assets) == 0 {
		return fmt.Errorf("tracking.assets must list at least one asset")
	}
	seen := make(map[string]struct{}, len(c.Tracking.Assets))
	for i, a := range c.Tracking.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("tracking.assets[%d].symbol is required", i)
		}
		if _, dup := seen[a.Symbol]; dup {
			return fmt.Errorf("tracking.assets[%d]: duplicate symbol %s", i, a.Symbol)
		}
		seen[a.Symbol] = struct{}{}
		if !a.Stable && a.SpotID == "" {
			return fmt.Errorf("tracking.assets[%d].spot_id is required for %s", i, a.Symbol)
		}
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
