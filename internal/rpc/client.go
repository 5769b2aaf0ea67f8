package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("rate limited (429)")

// StatusError is a non-200 answer from the node.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode >= 500
}

// Client is a Solana JSON-RPC client shared by every wallet and token of one
// deployment, so its limiter bounds the whole process.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	nextID       atomic.Uint64
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// RequestsPerSecond caps outgoing requests, retries included. Zero
	// leaves them unlimited.
	RequestsPerSecond float64
	Logger            *logrus.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		limiter:      limiter,
		logger:       cfg.Logger,
	}
}

// Call makes a JSON-RPC call. Transport failures, 429 and 5xx answers are
// retried with exponential backoff; a 429 Retry-After overrides the backoff
// for that attempt. Other statuses fail at once.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	data, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      c.nextID.Add(1),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff
	wait := time.Duration(0)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if wait < backoff {
				wait = backoff
			}
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": wait,
				"method":  method,
			}).WithError(lastErr).Debug("retrying RPC call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
			wait = 0
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, retryAfter, err := c.doRequest(ctx, data)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.retryable() {
				return fmt.Errorf("%s: %w", method, err)
			}
			lastErr = err
			wait = retryAfter
			continue
		}

		if err := json.Unmarshal(resp, result); err != nil {
			return fmt.Errorf("failed to unmarshal %s response: %w", method, err)
		}
		return nil
	}

	return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

func (c *Client) doRequest(ctx context.Context, data []byte) (body []byte, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return nil, retryAfter, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, 0, nil
}

// GetTokenAccountBalance returns the raw amount held by an SPL token account.
// A missing account is reported as ErrAccountNotFound.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account string, commitment string) (uint64, error) {
	params := []any{account, map[string]any{"commitment": commitment}}

	var result TokenAccountBalanceResponse
	if err := c.Call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		return 0, err
	}
	if result.Error != nil {
		if result.Error.IsAccountNotFound() {
			return 0, ErrAccountNotFound
		}
		return 0, result.Error
	}

	amount, err := strconv.ParseUint(result.Result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format %q: %w", result.Result.Value.Amount, err)
	}
	return amount, nil
}

// GetParsedTokenAccount fetches a token account with jsonParsed encoding.
// A missing account is reported as ErrAccountNotFound.
func (c *Client) GetParsedTokenAccount(ctx context.Context, account string, commitment string) (*ParsedTokenAccountInfo, error) {
	params := []any{
		account,
		map[string]any{
			"encoding":   "jsonParsed",
			"commitment": commitment,
		},
	}

	var result ParsedAccountResponse
	if err := c.Call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if result.Result.Value == nil {
		return nil, ErrAccountNotFound
	}

	return &result.Result.Value.Data.Parsed.Info, nil
}
