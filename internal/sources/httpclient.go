package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"solana-token-scout/internal/throttle"
)

// Default configuration values.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultMaxRetries    = 2
	DefaultRetryInterval = 200 * time.Millisecond
)

// Client is the shared HTTP layer under every REST adapter. All calls pass
// through the source's throttle gate, carry the per-call timeout and retry
// transient failures before the outcome is reported upward.
type Client struct {
	baseURL       string
	apiKey        string
	client        *http.Client
	gate          *throttle.Gate
	timeout       time.Duration
	maxRetries    uint64
	retryInterval time.Duration
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithAPIKey sets the bearer key sent on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithGate routes calls through a throttle gate.
func WithGate(g *throttle.Gate) ClientOption {
	return func(c *Client) {
		c.gate = g
	}
}

// WithMaxRetries sets in-call retry attempts for transient failures.
func WithMaxRetries(n uint64) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a client for one provider.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       baseURL,
		client:        &http.Client{},
		timeout:       DefaultTimeout,
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches baseURL+path and decodes the response into out.
// HTTP 429 maps to ErrRateLimited and is not retried in-call; the engine
// owns that budget. 5xx and transport errors are retried with exponential
// backoff up to maxRetries.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	if c.gate != nil {
		permit, err := c.gate.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire throttle permit: %w", err)
		}
		defer permit.Release()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	operation := func() error {
		return c.doGet(ctx, path, out)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		// Unwrap so callers can classify against context errors
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return backoff.Permanent(ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// PostJSON sends a JSON body and decodes the response into out. Posts are
// never retried in-call; callers that need idempotent resubmission supply
// their own client keys.
func (c *Client) PostJSON(ctx context.Context, path string, in, out interface{}) error {
	if c.gate != nil {
		permit, err := c.gate.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire throttle permit: %w", err)
		}
		defer permit.Release()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
