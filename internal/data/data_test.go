package data

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRealizedVol(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 100
	}
	if got := realizedVol(flat, volWindow); got != 0 {
		t.Fatalf("flat series has no volatility: %v", got)
	}
	if got := realizedVol(flat[:10], volWindow); got != 0 {
		t.Fatalf("short series: %v", got)
	}

	// Alternating moves produce a strictly positive annualized figure.
	choppy := make([]float64, 40)
	for i := range choppy {
		choppy[i] = 100 + float64(i%2)
	}
	got := realizedVol(choppy, volWindow)
	if got <= 0 || math.IsNaN(got) {
		t.Fatalf("choppy series: %v", got)
	}
}

func TestRollingVol(t *testing.T) {
	if got := rollingVol(make([]float64, 10), volWindow); got != nil {
		t.Fatalf("short series: %v", got)
	}
	choppy := make([]float64, 50)
	for i := range choppy {
		choppy[i] = 100 + float64(i%3)
	}
	series := rollingVol(choppy, volWindow)
	if len(series) == 0 {
		t.Fatal("expected a rolling series")
	}
}

func TestStreamFeedSnapshot(t *testing.T) {
	f := NewStreamFeed("ws://unused", time.Second, zap.NewNop())

	snap, err := f.Snapshot(context.Background(), "AMD")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Empty() {
		t.Fatal("no ticks yet, snapshot must be empty")
	}

	for i := 0; i < 130; i++ {
		f.record(tick{Symbol: "AMD", Price: 100 + float64(i)*0.1})
	}
	f.record(tick{Symbol: "TSLA", Price: 200})

	snap, err = f.Snapshot(context.Background(), "AMD")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Empty() {
		t.Fatal("snapshot should carry the tick window")
	}
	if len(snap.Closes) != 130 {
		t.Fatalf("window length: %d", len(snap.Closes))
	}
	if len(snap.HTFCloses) != 2 {
		t.Fatalf("downsampled series: %d", len(snap.HTFCloses))
	}
	if snap.DayLow != 100 || snap.Price <= snap.DayLow {
		t.Fatalf("day range: low=%v price=%v", snap.DayLow, snap.Price)
	}
	if snap.ChangePct <= 0 {
		t.Fatalf("change pct: %v", snap.ChangePct)
	}

	// Windows are per symbol.
	other, _ := f.Snapshot(context.Background(), "TSLA")
	if len(other.Closes) != 1 {
		t.Fatalf("tsla window: %d", len(other.Closes))
	}
}

func TestStreamFeedWindowBound(t *testing.T) {
	f := NewStreamFeed("ws://unused", time.Second, zap.NewNop())
	for i := 0; i < streamWindow+50; i++ {
		f.record(tick{Symbol: "AMD", Price: 100})
	}
	snap, _ := f.Snapshot(context.Background(), "AMD")
	if len(snap.Closes) != streamWindow {
		t.Fatalf("window must stay bounded: %d", len(snap.Closes))
	}
}
