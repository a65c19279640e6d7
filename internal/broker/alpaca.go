package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	keyEnv    = "APCA_API_KEY_ID"
	secretEnv = "APCA_API_SECRET_KEY"

	retryAttempts = 3
	retryBackoff  = 200 * time.Millisecond
)

// AlpacaClient talks to an Alpaca-compatible paper trading API with
// key/secret header auth. Transient submit failures are retried with
// exponential backoff.
type AlpacaClient struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
	log     *zap.Logger
}

func NewAlpacaClient(baseURL string, timeout time.Duration, log *zap.Logger) (*AlpacaClient, error) {
	key, secret := os.Getenv(keyEnv), os.Getenv(secretEnv)
	if key == "" || secret == "" {
		return nil, errors.New("broker credentials missing: set " + keyEnv + " and " + secretEnv)
	}
	return &AlpacaClient{
		baseURL: baseURL,
		key:     key,
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// newAlpacaClient wires explicit credentials and transport, used by tests.
func newAlpacaClient(baseURL, key, secret string, httpClient *http.Client, log *zap.Logger) *AlpacaClient {
	return &AlpacaClient{baseURL: baseURL, key: key, secret: secret, http: httpClient, log: log}
}

func (c *AlpacaClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", c.key)
	req.Header.Set("APCA-API-SECRET-KEY", c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &httpError{status: resp.StatusCode, body: string(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Alpaca serializes account numbers as strings.
type alpacaAccount struct {
	Cash           string `json:"cash"`
	BuyingPower    string `json:"buying_power"`
	Equity         string `json:"equity"`
	PortfolioValue string `json:"portfolio_value"`
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func (c *AlpacaClient) Account(ctx context.Context) (Account, error) {
	var raw alpacaAccount
	if err := c.do(ctx, http.MethodGet, "/v2/account", nil, &raw); err != nil {
		return Account{}, err
	}
	return Account{
		Cash:           parseFloat(raw.Cash),
		BuyingPower:    parseFloat(raw.BuyingPower),
		Equity:         parseFloat(raw.Equity),
		PortfolioValue: parseFloat(raw.PortfolioValue),
	}, nil
}

type alpacaPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
	UnrealizedPnL string `json:"unrealized_pl"`
}

func (c *AlpacaClient) OpenPositions(ctx context.Context) ([]Position, error) {
	var raw []alpacaPosition
	if err := c.do(ctx, http.MethodGet, "/v2/positions", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Position, 0, len(raw))
	for _, p := range raw {
		qty, _ := strconv.Atoi(p.Qty)
		out = append(out, Position{
			Symbol:        p.Symbol,
			Qty:           qty,
			AvgEntryPrice: parseFloat(p.AvgEntryPrice),
			CurrentPrice:  parseFloat(p.CurrentPrice),
			UnrealizedPnL: parseFloat(p.UnrealizedPnL),
		})
	}
	return out, nil
}

func (c *AlpacaClient) SubmitMarketOrder(ctx context.Context, symbol string, qty int, side string) (string, error) {
	order := map[string]any{
		"symbol":        symbol,
		"qty":           qty,
		"side":          side,
		"type":          "market",
		"time_in_force": "day",
	}
	var resp struct {
		ID string `json:"id"`
	}
	err := c.retry(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/v2/orders", order, &resp)
	})
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("broker returned an empty order id")
	}
	return resp.ID, nil
}

func (c *AlpacaClient) ClosePosition(ctx context.Context, symbol string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, "/v2/positions/"+symbol, nil, nil)
	if err != nil {
		// No position to close is not a failure.
		var httpErr *httpError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http %d: %s", e.status, e.body)
}

func (c *AlpacaClient) retry(ctx context.Context, fn func() error) error {
	backoff := retryBackoff
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		c.log.Warn("broker request failed", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return fmt.Errorf("retry failed: %w", err)
}
