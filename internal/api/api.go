// Package api is the desk's outbound HTTP client: a resty client configured
// through functional options and shared by the model providers, the Discord
// notifier and the FX feed.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"quant-desk/internal/logger"
)

type Client struct {
	rc         *resty.Client
	useLogging bool
}

// ClientOption configures the API client
type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.rc.SetTimeout(timeout)
	}
}

// WithBaseURL sets the base URL for all requests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.rc.SetBaseURL(baseURL)
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.rc.SetHeader(key, value)
	}
}

// WithLogging logs each request at debug level and failures at warn.
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

// WithRetry retries transport errors and 5xx/429 responses with
// exponential backoff between wait and maxWait.
func WithRetry(attempts int, wait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.rc.SetRetryCount(attempts).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
			})
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{rc: resty.New().SetTimeout(30 * time.Second)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON sends body as JSON and decodes a 2xx response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any, headers map[string]string) error {
	req := c.rc.R().SetContext(ctx).SetHeaders(headers).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	return c.check(ctx, "POST", path, func() (*resty.Response, error) { return req.Post(path) })
}

// GetJSON issues a GET with query parameters and decodes into out.
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, out any) error {
	req := c.rc.R().SetContext(ctx).SetQueryParams(query)
	if out != nil {
		req.SetResult(out)
	}
	return c.check(ctx, "GET", path, func() (*resty.Response, error) { return req.Get(path) })
}

func (c *Client) check(ctx context.Context, method, path string, do func() (*resty.Response, error)) error {
	start := time.Now()
	resp, err := do()
	if err != nil {
		if c.useLogging {
			logger.WarnSkip(ctx, 2, "HTTP request failed", "method", method, "path", path, "error", err)
		}
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	if c.useLogging {
		logger.DebugSkip(ctx, 2, "HTTP Response",
			"method", method,
			"path", path,
			"status", resp.StatusCode(),
			"duration", time.Since(start),
			"bodySize", len(resp.Body()))
	}
	if resp.IsError() {
		if c.useLogging {
			logger.WarnSkip(ctx, 2, "HTTP error response", "method", method, "path", path, "status", resp.StatusCode())
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), truncate(resp.String(), 512))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
