package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultInitialBackoff = 1 * time.Second
	maxBackoff            = 16 * time.Second
	maxBodySize           = 8 << 20
)

var (
	// ErrNotFound is returned when the remote site answers 404.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidURL is returned for links that are not absolute http(s) URLs with a path.
	ErrInvalidURL = errors.New("invalid URL")
)

// StatusError is returned for non-retryable HTTP failures
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Options configures a Client
type Options struct {
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	MaxRetries        int
	UserAgent         string
	InitialBackoff    time.Duration
}

// Client fetches replay and paste JSON with rate limiting and retries.
// It is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	userAgent      string
	maxRetries     int
	initialBackoff time.Duration
}

// NewClient creates a new fetch client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "showdown-tracker/1.0"
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		httpClient:     &http.Client{Timeout: opts.Timeout},
		rateLimiter:    rate.NewLimiter(limit, opts.Burst),
		userAgent:      opts.UserAgent,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
	}
}

// getJSON performs a GET with rate limiting and retry logic and decodes the body into result.
func (c *Client) getJSON(ctx context.Context, url string, result any) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, maxBackoff)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		retryAfter, err := c.do(ctx, url, result)
		if err == nil {
			return nil
		}

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return err
		}
		lastErr = retryable.err
		if retryAfter > backoff {
			backoff = retryAfter
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }

func (e *retryableError) Unwrap() error { return e.err }

// do sends one request. Network errors, 429 and 5xx come back as retryableError.
func (c *Client) do(ctx context.Context, url string, result any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, &retryableError{err: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, &retryableError{err: fmt.Errorf("failed to read response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.Unmarshal(body, result); err != nil {
			return 0, fmt.Errorf("failed to parse JSON response from %s: %w", url, err)
		}
		return 0, nil
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
		return parseRetryAfter(resp.Header.Get("Retry-After")), &retryableError{err: statusErr}
	default:
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return min(time.Duration(seconds)*time.Second, maxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
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
