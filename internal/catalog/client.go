// Package catalog syncs rule documents from a remote tag catalog. The
// remote entries carry newline-joined pattern text; the syncer splits
// them back into the same document shape the local YAML path uses and
// hot-swaps the rule store, with a snapshot file as offline fallback.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultRateLimit   = 2.0 // requests per second
	defaultBurst       = 4
)

// Entry is one remote catalog record. Patterns and Exclude arrive as
// newline-joined text blocks, not lists.
type Entry struct {
	Tag      string  `json:"tag"`
	Patterns string  `json:"patterns"`
	Exclude  string  `json:"exclude"`
	Weight   float64 `json:"weight"`
}

// ClientConfig configures a catalog Client.
type ClientConfig struct {
	// BaseURL is the catalog API root, without trailing slash.
	BaseURL string

	// Token authorizes requests when the catalog requires it.
	Token string `json:"-"`

	// Timeout bounds each HTTP request. Zero means defaultTimeout.
	Timeout time.Duration

	// MaxRetries caps retry attempts for transient failures.
	MaxRetries int
}

// Client fetches catalog entries over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewClient creates a catalog client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries: maxRetries,
	}, nil
}

// Fetch returns the current catalog entries. Transient failures (network
// errors, 429, 5xx) are retried with exponential backoff; anything else
// fails immediately.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		entries, err := c.doFetch(ctx)
		if err == nil {
			return entries, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doFetch performs one HTTP request against the catalog.
func (c *Client) doFetch(ctx context.Context) ([]Entry, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/entries", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("catalog request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return nil, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog error (%d): %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return payload.Entries, nil
}

// retryableError marks an error as transient.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
