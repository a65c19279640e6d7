package data

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"strategy-lab/internal/market"
)

const (
	streamWindow  = 500
	htfDownsample = 60
)

// StreamFeed is a push-based alternative to polling Yahoo: a reconnecting
// websocket reader that accumulates rolling close windows per symbol and
// serves the same Snapshot contract. Ticks are JSON objects of the form
// {"symbol": "AMD", "price": 123.45}.
type StreamFeed struct {
	url            string
	reconnectDelay time.Duration
	log            *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closes map[string][]float64
	dayLow map[string]float64
	dayHi  map[string]float64
}

func NewStreamFeed(url string, reconnectDelay time.Duration, log *zap.Logger) *StreamFeed {
	return &StreamFeed{
		url:            url,
		reconnectDelay: reconnectDelay,
		log:            log,
		closes:         make(map[string][]float64),
		dayLow:         make(map[string]float64),
		dayHi:          make(map[string]float64),
	}
}

type tick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Run drives the read loop until the context ends, reconnecting after
// transient failures.
func (f *StreamFeed) Run(ctx context.Context) error {
	for {
		if err := f.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn("stream connect failed", zap.Error(err))
		} else if err := f.readLoop(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logReadLoopError(err)
		}
		f.resetConn()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *StreamFeed) connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		return err
	}
	f.conn = conn
	return nil
}

func (f *StreamFeed) readLoop(ctx context.Context) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return errors.New("stream not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var t tick
		if err := json.Unmarshal(data, &t); err != nil || t.Symbol == "" || t.Price <= 0 {
			continue
		}
		f.record(t)
	}
}

func (f *StreamFeed) record(t tick) {
	f.mu.Lock()
	defer f.mu.Unlock()
	window := append(f.closes[t.Symbol], t.Price)
	if len(window) > streamWindow {
		window = window[len(window)-streamWindow:]
	}
	f.closes[t.Symbol] = window
	if lo, ok := f.dayLow[t.Symbol]; !ok || t.Price < lo {
		f.dayLow[t.Symbol] = t.Price
	}
	if hi, ok := f.dayHi[t.Symbol]; !ok || t.Price > hi {
		f.dayHi[t.Symbol] = t.Price
	}
}

func (f *StreamFeed) logReadLoopError(err error) {
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		f.log.Info("stream read loop ended", zap.Error(err))
		return
	}
	f.log.Warn("stream read loop ended", zap.Error(err))
}

func (f *StreamFeed) resetConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close(websocket.StatusNormalClosure, "reset")
		f.conn = nil
	}
}

// Snapshot serves the accumulated window for a symbol. No IV is observable
// on a bare tick feed, so the flat default applies and the rank degrades to
// its midpoint.
func (f *StreamFeed) Snapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	_ = ctx

	f.mu.Lock()
	defer f.mu.Unlock()
	window := f.closes[symbol]
	if len(window) == 0 {
		return market.Snapshot{Symbol: symbol}, nil
	}
	closes := append([]float64(nil), window...)

	// Approximate an hourly view by downsampling the tick window.
	var htf []float64
	for i := htfDownsample - 1; i < len(closes); i += htfDownsample {
		htf = append(htf, closes[i])
	}

	price := closes[len(closes)-1]
	snap := market.Snapshot{
		Symbol:    symbol,
		Price:     price,
		DayLow:    f.dayLow[symbol],
		DayHigh:   f.dayHi[symbol],
		Closes:    closes,
		HTFCloses: htf,
		IV:        defaultIV,
	}
	if open := closes[0]; open > 0 {
		snap.DayOpen = open
		snap.ChangePct = (price - open) / open * 100
	}
	return snap, nil
}
