package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	Data     DataConfig     `yaml:"data"`
	State    StateConfig    `yaml:"state"`
	Strategy StrategyConfig `yaml:"strategy"`
	Trader   TraderConfig   `yaml:"trader"`
	Risk     RiskConfig     `yaml:"risk"`
	Halt     HaltConfig     `yaml:"halt"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	History  HistoryConfig  `yaml:"history"`
	Broker   BrokerConfig   `yaml:"broker"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type DataConfig struct {
	SectorSymbol   string          `yaml:"sector_symbol"`
	StreamURL      string          `yaml:"stream_url"`
	ReconnectDelay time.Duration   `yaml:"reconnect_delay"`
	Sentiment      SentimentConfig `yaml:"sentiment"`
}

type SentimentConfig struct {
	Enabled    bool          `yaml:"enabled"`
	BaseURL    string        `yaml:"base_url"`
	Subreddits []string      `yaml:"subreddits"`
	Timeout    time.Duration `yaml:"timeout"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type StrategyConfig struct {
	Symbol        string        `yaml:"symbol"`
	CatalogDir    string        `yaml:"catalog_dir"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	AutoTrade     bool          `yaml:"auto_trade"`
	MinConfidence int           `yaml:"min_confidence"`
}

type TraderConfig struct {
	Slippage  float64 `yaml:"slippage"`
	TargetPct float64 `yaml:"target_pct"`
	StopPct   float64 `yaml:"stop_pct"`
}

type RiskConfig struct {
	MaxPositionSizeUSD      float64       `yaml:"max_position_size_usd"`
	MaxOpenPositions        int           `yaml:"max_open_positions"`
	MaxDailyLossPct         float64       `yaml:"max_daily_loss_pct"`
	MaxTradesPerDay         int           `yaml:"max_trades_per_day"`
	ConsecutiveLossLimit    int           `yaml:"consecutive_loss_limit"`
	VIXPanicThreshold       float64       `yaml:"vix_panic_threshold"`
	MarketCrashThresholdPct float64       `yaml:"market_crash_threshold_pct"`
	OpenBuffer              time.Duration `yaml:"open_buffer"`
	CloseBuffer             time.Duration `yaml:"close_buffer"`
}

type HaltConfig struct {
	Dir string `yaml:"dir"`
}

type AlertsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type HistoryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
	QueueSize int    `yaml:"queue_size"`
}

type BrokerConfig struct {
	Mode    string        `yaml:"mode"` // off, dry_run, alpaca
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

// applyEnvOverrides lets secrets stay out of the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LAB_DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.WebhookURL = v
	}
	if v := os.Getenv("LAB_HISTORY_DSN"); v != "" {
		cfg.History.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Data.SectorSymbol == "" {
		cfg.Data.SectorSymbol = "QQQ"
	}
	if cfg.Data.ReconnectDelay == 0 {
		cfg.Data.ReconnectDelay = 3 * time.Second
	}
	if len(cfg.Data.Sentiment.Subreddits) == 0 {
		cfg.Data.Sentiment.Subreddits = []string{"wallstreetbets", "stocks", "options"}
	}
	if cfg.Data.Sentiment.BaseURL == "" {
		cfg.Data.Sentiment.BaseURL = "https://www.reddit.com"
	}
	if cfg.Data.Sentiment.Timeout == 0 {
		cfg.Data.Sentiment.Timeout = 5 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/strategy-lab.db"
	}
	if cfg.Strategy.CatalogDir == "" {
		cfg.Strategy.CatalogDir = "strategies"
	}
	if cfg.Strategy.PollInterval == 0 {
		cfg.Strategy.PollInterval = time.Minute
	}
	if cfg.Strategy.MinConfidence == 0 {
		cfg.Strategy.MinConfidence = 80
	}
	if cfg.Trader.Slippage == 0 {
		cfg.Trader.Slippage = 0.001
	}
	if cfg.Trader.TargetPct == 0 {
		cfg.Trader.TargetPct = 2.0
	}
	if cfg.Trader.StopPct == 0 {
		cfg.Trader.StopPct = 1.0
	}
	if cfg.Risk.MaxPositionSizeUSD == 0 {
		cfg.Risk.MaxPositionSizeUSD = 100
	}
	if cfg.Risk.MaxOpenPositions == 0 {
		cfg.Risk.MaxOpenPositions = 5
	}
	if cfg.Risk.MaxDailyLossPct == 0 {
		cfg.Risk.MaxDailyLossPct = 5
	}
	if cfg.Risk.MaxTradesPerDay == 0 {
		cfg.Risk.MaxTradesPerDay = 10
	}
	if cfg.Risk.ConsecutiveLossLimit == 0 {
		cfg.Risk.ConsecutiveLossLimit = 3
	}
	if cfg.Risk.VIXPanicThreshold == 0 {
		cfg.Risk.VIXPanicThreshold = 40
	}
	if cfg.Risk.MarketCrashThresholdPct == 0 {
		cfg.Risk.MarketCrashThresholdPct = -3
	}
	if cfg.Risk.OpenBuffer == 0 {
		cfg.Risk.OpenBuffer = 15 * time.Minute
	}
	if cfg.Risk.CloseBuffer == 0 {
		cfg.Risk.CloseBuffer = 15 * time.Minute
	}
	if cfg.Halt.Dir == "" {
		cfg.Halt.Dir = "."
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9102"
	}
	if cfg.History.Table == "" {
		cfg.History.Table = "decision_history"
	}
	if cfg.History.QueueSize == 0 {
		cfg.History.QueueSize = 256
	}
	if cfg.Broker.Mode == "" {
		cfg.Broker.Mode = "off"
	}
	if cfg.Broker.BaseURL == "" {
		cfg.Broker.BaseURL = "https://paper-api.alpaca.markets"
	}
	if cfg.Broker.Timeout == 0 {
		cfg.Broker.Timeout = 10 * time.Second
	}
}

func validate(cfg *Config) error {
	if cfg.Strategy.Symbol == "" {
		return errors.New("strategy.symbol is required")
	}
	if cfg.Trader.Slippage < 0 || cfg.Trader.Slippage >= 0.1 {
		return errors.New("trader.slippage must be in [0, 0.1)")
	}
	if cfg.Trader.TargetPct <= 0 || cfg.Trader.StopPct <= 0 {
		return errors.New("trader.target_pct and trader.stop_pct must be > 0")
	}
	if cfg.Risk.MarketCrashThresholdPct > 0 {
		return errors.New("risk.market_crash_threshold_pct must be negative")
	}
	switch cfg.Broker.Mode {
	case "off", "dry_run", "alpaca":
	default:
		return errors.New("broker.mode must be one of off, dry_run, alpaca")
	}
	if cfg.Alerts.Enabled && cfg.Alerts.WebhookURL == "" {
		return errors.New("alerts.webhook_url is required when alerts are enabled")
	}
	if cfg.History.Enabled && cfg.History.DSN == "" {
		return errors.New("history.dsn is required when history is enabled")
	}
	return nil
}
