package data

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"strategy-lab/internal/config"
	"strategy-lab/internal/market"
)

const (
	postsPerSubreddit = 50
	scorePerMention   = 10
	maxScore          = 100
)

var (
	bullishWords = []string{"moon", "calls", "yolo", "buy", "rocket", "breakout"}
	bearishWords = []string{"puts", "crash", "rip", "sell", "dump", "bagholder"}
)

// RedditSource scrapes recent posts from a set of subreddits and turns raw
// ticker mentions into a hype score. It is deliberately crude: volume of
// chatter, not quality.
type RedditSource struct {
	client     *resty.Client
	baseURL    string
	subreddits []string
	log        *zap.Logger
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title    string `json:"title"`
				Selftext string `json:"selftext"`
				Score    int    `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func NewRedditSource(cfg config.SentimentConfig, log *zap.Logger) *RedditSource {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "strategy-lab/1.0")
	return &RedditSource{
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		subreddits: cfg.Subreddits,
		log:        log,
	}
}

// Sentiment fetches the newest posts from every configured subreddit and
// scores the symbol's presence. Feed failures read as no data, not errors.
func (r *RedditSource) Sentiment(ctx context.Context, symbol string) (market.Sentiment, error) {
	neutral := market.Sentiment{Direction: market.TrendNeutral}
	mention, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(symbol) + `\b`)
	if err != nil {
		return neutral, err
	}

	var texts []string
	for _, sub := range r.subreddits {
		var listing redditListing
		url := fmt.Sprintf("%s/r/%s/new.json?limit=%d", r.baseURL, sub, postsPerSubreddit)
		resp, err := r.client.R().SetContext(ctx).SetResult(&listing).Get(url)
		if err != nil {
			r.log.Warn("subreddit fetch failed", zap.String("subreddit", sub), zap.Error(err))
			continue
		}
		if resp.StatusCode() != 200 {
			r.log.Warn("subreddit fetch rejected",
				zap.String("subreddit", sub), zap.Int("status", resp.StatusCode()))
			continue
		}
		for _, child := range listing.Data.Children {
			texts = append(texts, child.Data.Title+" "+child.Data.Selftext)
		}
	}
	return scoreMentions(texts, mention), nil
}

// scoreMentions counts posts that name the symbol and votes their keywords.
// Ten points per mention, capped at 100.
func scoreMentions(texts []string, mention *regexp.Regexp) market.Sentiment {
	var mentions, bullVotes, bearVotes int
	for _, text := range texts {
		if !mention.MatchString(text) {
			continue
		}
		mentions++
		lower := strings.ToLower(text)
		for _, w := range bullishWords {
			if strings.Contains(lower, w) {
				bullVotes++
			}
		}
		for _, w := range bearishWords {
			if strings.Contains(lower, w) {
				bearVotes++
			}
		}
	}

	score := mentions * scorePerMention
	if score > maxScore {
		score = maxScore
	}
	direction := market.TrendNeutral
	switch {
	case bullVotes > bearVotes:
		direction = market.TrendBullish
	case bearVotes > bullVotes:
		direction = market.TrendBearish
	}
	return market.Sentiment{Score: score, Direction: direction, Mentions: mentions}
}
