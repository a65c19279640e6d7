// Package alerts posts engine events to a Discord webhook. Delivery is
// best effort; the engine logs failures and moves on.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"strategy-lab/internal/config"
	"strategy-lab/internal/paper"
	"strategy-lab/internal/scanner"
	"strategy-lab/internal/state"
)

const (
	colorGreen  = 5763719
	colorRed    = 15548997
	colorOrange = 15105570
	colorGray   = 9807270
)

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Discord struct {
	enabled    bool
	webhookURL string
	client     *http.Client
	log        *zap.Logger
}

func NewDiscord(cfg config.AlertsConfig, log *zap.Logger) *Discord {
	return newDiscord(cfg, log, &http.Client{Timeout: 10 * time.Second})
}

func newDiscord(cfg config.AlertsConfig, log *zap.Logger, client *http.Client) *Discord {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Discord{
		enabled:    cfg.Enabled,
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		client:     client,
		log:        log,
	}
}

func (d *Discord) send(ctx context.Context, e embed) error {
	if !d.enabled {
		return nil
	}
	if d.webhookURL == "" {
		return errors.New("discord webhook url is required")
	}
	body, err := json.Marshal(map[string]any{"embeds": []embed{e}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("discord send failed: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// SignalFound announces the cycle's top pick with its prediction.
func (d *Discord) SignalFound(ctx context.Context, symbol string, sig scanner.Signal, verdict string, targetPrice float64, confidence int) error {
	return d.send(ctx, embed{
		Title:       fmt.Sprintf("Signal: %s on %s", sig.StrategyName, symbol),
		Description: verdict,
		Color:       colorOrange,
		Fields: []field{
			{Name: "Direction", Value: sig.Direction, Inline: true},
			{Name: "Target", Value: fmt.Sprintf("%.2f", targetPrice), Inline: true},
			{Name: "Confidence", Value: fmt.Sprintf("%d%%", confidence), Inline: true},
		},
	})
}

func (d *Discord) TradeOpened(ctx context.Context, symbol string, sig scanner.Signal, tradeID string, entryPrice float64) error {
	return d.send(ctx, embed{
		Title:       fmt.Sprintf("Paper trade opened: %s", symbol),
		Description: fmt.Sprintf("%s (%s) filled at %.2f", sig.StrategyName, sig.Direction, entryPrice),
		Color:       colorGreen,
		Fields: []field{
			{Name: "Trade", Value: tradeID, Inline: true},
			{Name: "Strategy", Value: sig.StrategyID, Inline: true},
		},
	})
}

func (d *Discord) TradeClosed(ctx context.Context, trade state.TradeRecord) error {
	color := colorGreen
	if trade.PnL < 0 {
		color = colorRed
	}
	return d.send(ctx, embed{
		Title:       fmt.Sprintf("Paper trade closed: %s", trade.Symbol),
		Description: trade.Lesson,
		Color:       color,
		Fields: []field{
			{Name: "Strategy", Value: trade.StrategyID, Inline: true},
			{Name: "PnL", Value: fmt.Sprintf("%.2f (%.2f%%)", trade.PnL, trade.PnLPct), Inline: true},
		},
	})
}

func (d *Discord) RiskBreach(ctx context.Context, reason string) error {
	return d.send(ctx, embed{
		Title:       "Trade blocked by risk checks",
		Description: reason,
		Color:       colorRed,
	})
}

func (d *Discord) DailySummary(ctx context.Context, stats paper.Stats) error {
	return d.send(ctx, embed{
		Title: "Daily summary",
		Description: fmt.Sprintf("%d closed trades, %.1f%% win rate, %.2f total PnL, %d open",
			stats.TotalTrades, stats.WinRate, stats.TotalPnL, len(stats.Open)),
		Color: colorGray,
	})
}
