// Package upstream calls third-party HTTP APIs through a circuit breaker with
// retries and exponential backoff.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chitram/companion/internal/infra/metrics"
	"github.com/sony/gobreaker"
)

const maxBodyBytes = 8 << 20

// StatusError is a non-200 response.
type StatusError struct {
	Upstream   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Upstream, e.StatusCode, e.Body)
}

// Client is safe for concurrent use.
type Client struct {
	name       string
	http       *http.Client
	cb         *gobreaker.CircuitBreaker
	maxRetries int
	backoff    time.Duration
}

type Option func(*Client)

// WithRetries sets how many times a transport error or 5xx is retried and the
// first backoff delay, which doubles on each attempt.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.backoff = backoff
	}
}

// WithHTTPClient replaces the default client built from the timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(name string, timeout time.Duration, opts ...Option) *Client {
	cbSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if we have 3 consecutive failures
			return counts.ConsecutiveFailures >= 3
		},
		// 4xx is the caller's fault and says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("CircuitBreaker state changed", "name", name, "from", from, "to", to)
		},
	}

	c := &Client{
		name:       name,
		http:       &http.Client{Timeout: timeout},
		cb:         gobreaker.NewCircuitBreaker(cbSettings),
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// Get performs a GET and returns the body of a 200 response. endpoint labels
// the latency metric and log lines.
func (c *Client) Get(ctx context.Context, endpoint, url string, header http.Header) ([]byte, error) {
	return c.Do(ctx, endpoint, http.MethodGet, url, nil, header)
}

// Do performs a request through the circuit breaker, retrying transport
// errors and 5xx responses. 4xx responses fail immediately with *StatusError.
func (c *Client) Do(ctx context.Context, endpoint, method, url string, body []byte, header http.Header) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamRequestDuration.WithLabelValues(c.name, endpoint).Observe(time.Since(start).Seconds())
	}()

	out, err := c.cb.Execute(func() (interface{}, error) {
		backoff := c.backoff
		var lastErr error
		for i := 0; i <= c.maxRetries; i++ {
			if i > 0 {
				slog.Info("Retrying request", "upstream", c.name, "endpoint", endpoint, "attempt", i, "max_retries", c.maxRetries)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
					backoff *= 2
				}
			}

			data, retry, err := c.once(ctx, method, url, body, header)
			if err == nil {
				return data, nil
			}
			if !retry {
				return nil, err
			}
			slog.Warn("Upstream request failed", "upstream", c.name, "endpoint", endpoint, "error", err)
			lastErr = err
		}
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// once sends a single attempt and reports whether a failure is retryable.
func (c *Client) once(ctx context.Context, method, url string, body []byte, header http.Header) ([]byte, bool, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		se := &StatusError{
			Upstream:   c.name,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
		return nil, resp.StatusCode >= 500, se
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read response body: %w", err)
	}
	return data, false, nil
}
