package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap"

	"strategy-lab/internal/config"
	"strategy-lab/internal/market"
)

func listingBody(titles ...string) string {
	type child struct {
		Data map[string]any `json:"data"`
	}
	children := make([]child, 0, len(titles))
	for _, title := range titles {
		children = append(children, child{Data: map[string]any{"title": title, "selftext": "", "score": 10}})
	}
	body, _ := json.Marshal(map[string]any{"data": map[string]any{"children": children}})
	return string(body)
}

func newRedditSource(t *testing.T, handler http.HandlerFunc) *RedditSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.SentimentConfig{
		BaseURL:    server.URL,
		Subreddits: []string{"wallstreetbets", "options"},
		Timeout:    2 * time.Second,
	}
	return NewRedditSource(cfg, zap.NewNop())
}

func TestSentimentScoresMentions(t *testing.T) {
	src := newRedditSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, listingBody(
			"AMD to the moon, loading calls",
			"thinking about AMD",
			"unrelated TSLA post",
		))
	})
	got, err := src.Sentiment(context.Background(), "AMD")
	if err != nil {
		t.Fatal(err)
	}
	// Two subreddits serve the same three posts; two mention AMD each.
	if got.Mentions != 4 {
		t.Fatalf("mentions: %d", got.Mentions)
	}
	if got.Score != 40 {
		t.Fatalf("score: %d", got.Score)
	}
	if got.Direction != market.TrendBullish {
		t.Fatalf("direction: %s", got.Direction)
	}
}

func TestSentimentScoreCap(t *testing.T) {
	titles := make([]string, 15)
	for i := range titles {
		titles[i] = "AMD puts, this will crash"
	}
	src := newRedditSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, listingBody(titles...))
	})
	got, err := src.Sentiment(context.Background(), "AMD")
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 100 {
		t.Fatalf("score must cap at 100: %d", got.Score)
	}
	if got.Direction != market.TrendBearish {
		t.Fatalf("direction: %s", got.Direction)
	}
}

func TestSentimentFeedFailureIsNeutral(t *testing.T) {
	src := newRedditSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	got, err := src.Sentiment(context.Background(), "AMD")
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 0 || got.Direction != market.TrendNeutral {
		t.Fatalf("expected neutral default, got %+v", got)
	}
}

func TestScoreMentionsWholeWordOnly(t *testing.T) {
	mention := regexp.MustCompile(`(?i)\bAMD\b`)
	got := scoreMentions([]string{"RAMDISK benchmarks", "amd earnings"}, mention)
	if got.Mentions != 1 {
		t.Fatalf("substring must not count: %+v", got)
	}
}
