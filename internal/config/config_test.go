package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{Strategy: StrategyConfig{Symbol: "AMD"}}
	applyDefaults(cfg)
	if cfg.Log.Level != "info" {
		t.Fatalf("log level default: %q", cfg.Log.Level)
	}
	if cfg.Data.SectorSymbol != "QQQ" {
		t.Fatalf("sector symbol default: %q", cfg.Data.SectorSymbol)
	}
	if cfg.Strategy.PollInterval != time.Minute {
		t.Fatalf("poll interval default: %v", cfg.Strategy.PollInterval)
	}
	if cfg.Strategy.MinConfidence != 80 {
		t.Fatalf("min confidence default: %d", cfg.Strategy.MinConfidence)
	}
	if cfg.Trader.Slippage != 0.001 {
		t.Fatalf("slippage default: %v", cfg.Trader.Slippage)
	}
	if cfg.Trader.TargetPct != 2.0 || cfg.Trader.StopPct != 1.0 {
		t.Fatalf("exit defaults: %v/%v", cfg.Trader.TargetPct, cfg.Trader.StopPct)
	}
	if cfg.Risk.MaxTradesPerDay != 10 || cfg.Risk.ConsecutiveLossLimit != 3 {
		t.Fatalf("risk defaults: %+v", cfg.Risk)
	}
	if cfg.Risk.VIXPanicThreshold != 40 || cfg.Risk.MarketCrashThresholdPct != -3 {
		t.Fatalf("risk market defaults: %+v", cfg.Risk)
	}
	if cfg.Risk.OpenBuffer != 15*time.Minute || cfg.Risk.CloseBuffer != 15*time.Minute {
		t.Fatalf("window buffers: %v/%v", cfg.Risk.OpenBuffer, cfg.Risk.CloseBuffer)
	}
	if cfg.Broker.Mode != "off" {
		t.Fatalf("broker mode default: %q", cfg.Broker.Mode)
	}
	if len(cfg.Data.Sentiment.Subreddits) == 0 {
		t.Fatal("subreddit defaults missing")
	}
}

func TestValidateRequiresSymbol(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for missing symbol")
	}
}

func TestValidateRejectsBadSlippage(t *testing.T) {
	cfg := &Config{
		Strategy: StrategyConfig{Symbol: "AMD"},
		Trader:   TraderConfig{Slippage: 0.5},
	}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for slippage out of range")
	}
}

func TestValidateRejectsPositiveCrashThreshold(t *testing.T) {
	cfg := &Config{
		Strategy: StrategyConfig{Symbol: "AMD"},
		Risk:     RiskConfig{MarketCrashThresholdPct: 3},
	}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for positive crash threshold")
	}
}

func TestValidateRejectsAlertsWithoutWebhook(t *testing.T) {
	t.Setenv("LAB_DISCORD_WEBHOOK_URL", "")
	cfg := &Config{
		Strategy: StrategyConfig{Symbol: "AMD"},
		Alerts:   AlertsConfig{Enabled: true},
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for alerts without webhook url")
	}
}

func TestWebhookEnvOverridesConfig(t *testing.T) {
	t.Setenv("LAB_DISCORD_WEBHOOK_URL", "https://discord.test/hook")
	cfg := &Config{
		Strategy: StrategyConfig{Symbol: "AMD"},
		Alerts:   AlertsConfig{Enabled: true, WebhookURL: "https://config.test/hook"},
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if cfg.Alerts.WebhookURL != "https://discord.test/hook" {
		t.Fatalf("env override lost: %q", cfg.Alerts.WebhookURL)
	}
	if err := validate(cfg); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejectsUnknownBrokerMode(t *testing.T) {
	cfg := &Config{
		Strategy: StrategyConfig{Symbol: "AMD"},
		Broker:   BrokerConfig{Mode: "live"},
	}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unknown broker mode")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
log:
  level: debug
strategy:
  symbol: NVDA
  poll_interval: 5m
  auto_trade: true
risk:
  max_trades_per_day: 4
broker:
  mode: dry_run
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Strategy.Symbol != "NVDA" || !cfg.Strategy.AutoTrade {
		t.Fatalf("strategy section: %+v", cfg.Strategy)
	}
	if cfg.Strategy.PollInterval != 5*time.Minute {
		t.Fatalf("poll interval: %v", cfg.Strategy.PollInterval)
	}
	if cfg.Risk.MaxTradesPerDay != 4 {
		t.Fatalf("risk override: %d", cfg.Risk.MaxTradesPerDay)
	}
	if cfg.Risk.MaxOpenPositions != 5 {
		t.Fatalf("risk default alongside override: %d", cfg.Risk.MaxOpenPositions)
	}
	if cfg.Broker.Mode != "dry_run" {
		t.Fatalf("broker mode: %q", cfg.Broker.Mode)
	}
}
