package history

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"strategy-lab/internal/config"
)

func TestDisabledWriterIsNil(t *testing.T) {
	w, err := New(config.HistoryConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if w != nil {
		t.Fatal("disabled history must yield a nil writer")
	}
}

func TestEnabledWriterRequiresDSN(t *testing.T) {
	_, err := New(config.HistoryConfig{Enabled: true}, zap.NewNop())
	if err == nil {
		t.Fatal("expected dsn error")
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	var w *Writer
	w.Enqueue(Decision{Time: time.Now(), Symbol: "AMD"})
	w.Start(nil)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	w := &Writer{
		log:       zap.NewNop(),
		decisions: make(chan Decision, 1),
	}
	w.Enqueue(Decision{Symbol: "AMD"})
	w.Enqueue(Decision{Symbol: "AMD"})
	if got := w.dropped.Load(); got != 1 {
		t.Fatalf("dropped: %d", got)
	}
	if len(w.decisions) != 1 {
		t.Fatalf("queue length: %d", len(w.decisions))
	}
}
