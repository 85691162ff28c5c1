package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"voteScope/internal/retry"
)

const DefaultBaseURL = "https://api.etherscan.io/v2/api"

// Config holds the explorer client settings.
type Config struct {
	BaseURL string
	APIKey  string
	ChainID uint64
	Timeout time.Duration
	// MinInterval spaces consecutive requests to stay under the API rate
	// limit.
	MinInterval time.Duration
	Retry       retry.Policy
}

// APIError is an error payload returned with HTTP 200.
type APIError struct {
	Action  string
	Message string
	Result  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("etherscan %s: %s: %s", e.Action, e.Message, e.Result)
}

// RateLimited reports whether the API refused the call for exceeding the
// rate limit.
func (e *APIError) RateLimited() bool {
	return strings.Contains(strings.ToLower(e.Result), "rate limit")
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("etherscan http %d: %s", e.Code, e.Body)
}

// Client talks to an Etherscan-compatible API. It implements iface.Source.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		logger.Warn("etherscan api key not set, requests will be heavily rate limited")
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type sourceResult struct {
	ContractName   string `json:"ContractName"`
	ABI            string `json:"ABI"`
	Proxy          string `json:"Proxy"`
	Implementation string `json:"Implementation"`
}

// Implementation returns the implementation address recorded for a proxy,
// or "" when the contract is not a proxy.
func (c *Client) Implementation(ctx context.Context, address string) (string, error) {
	raw, err := c.get(ctx, "getsourcecode", address)
	if err != nil {
		return "", err
	}
	var results []sourceResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return "", fmt.Errorf("parse getsourcecode result: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}
	return strings.TrimSpace(results[0].Implementation), nil
}

// ABI returns the raw ABI JSON array of a verified contract.
func (c *Client) ABI(ctx context.Context, address string) ([]byte, error) {
	raw, err := c.get(ctx, "getabi", address)
	if err != nil {
		return nil, err
	}
	// The ABI comes back as a JSON string holding the array.
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("parse getabi result: %w", err)
	}
	if !json.Valid([]byte(text)) {
		return nil, &APIError{Action: "getabi", Message: "invalid abi", Result: text}
	}
	return []byte(text), nil
}

func (c *Client) get(ctx context.Context, action, address string) (json.RawMessage, error) {
	op := action + " " + address
	return retry.Do(ctx, c.cfg.Retry, c.logger, op, func(ctx context.Context) (json.RawMessage, error) {
		raw, err := c.do(ctx, action, address)
		if err == nil {
			return raw, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.RateLimited() {
			return nil, retry.Permanent(err)
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code < 500 && statusErr.Code != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	})
}

func (c *Client) do(ctx context.Context, action, address string) (json.RawMessage, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("chainid", strconv.FormatUint(c.cfg.ChainID, 10))
	q.Set("module", "contract")
	q.Set("action", action)
	q.Set("address", address)
	if c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("etherscan %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read etherscan %s response: %w", action, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse etherscan %s response: %w", action, err)
	}
	if out.Status != "1" {
		var result string
		if err := json.Unmarshal(out.Result, &result); err != nil {
			result = string(out.Result)
		}
		return nil, &APIError{Action: action, Message: out.Message, Result: result}
	}

	c.logger.Debug("etherscan call", zap.String("action", action), zap.String("address", address))
	return out.Result, nil
}

func (c *Client) throttle(ctx context.Context) error {
	if c.cfg.MinInterval <= 0 {
		return nil
	}
	c.mu.Lock()
	wait := time.Until(c.lastCall.Add(c.cfg.MinInterval))
	if wait < 0 {
		wait = 0
	}
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
