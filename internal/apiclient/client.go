package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultMaxTokens  = 10
	defaultRefillRate = 2.0
)

// RateLimit configures the per-client token bucket.
type RateLimit struct {
	MaxTokens       int
	RefillPerSecond float64
}

// Config describes one logical service endpoint.
type Config struct {
	ServiceName string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	RateLimit   *RateLimit
	// Headers are attached to every request (auth tokens etc).
	Headers map[string]string
}

// Client wraps HTTP access to a single rate-limited third-party service with
// timeout, retry with exponential backoff, and a typed error taxonomy:
//
//   - 401 fails immediately with AuthError (bad credentials never recover)
//   - 429 sleeps out the server-provided retry-after without spending an attempt
//   - transport timeouts retry, then fail with TimeoutError
//   - anything else retries with backoff, then fails with APIError
type Client struct {
	serviceName string
	baseURL     string
	timeout     time.Duration
	maxRetries  int
	headers     map[string]string
	limiter     *RateLimiter
	httpClient  *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	rl := cfg.RateLimit
	if rl == nil {
		rl = &RateLimit{MaxTokens: defaultMaxTokens, RefillPerSecond: defaultRefillRate}
	}

	return &Client{
		serviceName: cfg.ServiceName,
		baseURL:     cfg.BaseURL,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		headers:     cfg.Headers,
		limiter:     NewRateLimiter(rl.MaxTokens, rl.RefillPerSecond),
		httpClient:  &http.Client{},
	}
}

// Request performs one logical request against the service and returns the
// response body. One rate-limit token is consumed per logical request, not
// per attempt.
func (c *Client) Request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + path
	requestID := uuid.NewString()

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		data, retryAfter, err := c.attempt(ctx, method, url, body, requestID, attempt)
		if err == nil {
			return data, nil
		}

		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}

		// 429 waits out the server-provided delay and does not count
		// against the attempt budget.
		if retryAfter > 0 {
			log.Printf("%s rate limited (request %s), waiting %s", c.serviceName, requestID, retryAfter)
			if serr := sleep(ctx, retryAfter); serr != nil {
				return nil, serr
			}
			attempt--
			continue
		}

		if attempt == c.maxRetries {
			var timeoutErr *TimeoutError
			if errors.As(err, &timeoutErr) {
				return nil, err
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return nil, err
			}
			return nil, &APIError{
				Service:   c.serviceName,
				RequestID: requestID,
				Message:   err.Error(),
			}
		}

		backoff := time.Duration(math.Pow(2, float64(attempt)))*time.Second +
			time.Duration(rand.Float64()*float64(time.Second))
		log.Printf("%s retry %d/%d (request %s): %v, backing off %s",
			c.serviceName, attempt, c.maxRetries, requestID, err, backoff.Round(time.Millisecond))
		if serr := sleep(ctx, backoff); serr != nil {
			return nil, serr
		}
	}

	return nil, &APIError{Service: c.serviceName, RequestID: requestID, Message: "max retries exceeded"}
}

// attempt issues one HTTP attempt. A positive retryAfter signals a 429.
func (c *Client) attempt(ctx context.Context, method, url string, body []byte, requestID string, attempt int) (data []byte, retryAfter time.Duration, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			log.Printf("%s %s %s: timeout after %s (request %s, attempt %d)",
				c.serviceName, method, url, duration.Round(time.Millisecond), requestID, attempt)
			return nil, 0, &TimeoutError{Service: c.serviceName, Timeout: c.timeout}
		}
		log.Printf("%s %s %s: transport error %v (request %s, attempt %d)",
			c.serviceName, method, url, err, requestID, attempt)
		return nil, 0, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	log.Printf("%s %s %s: status %d in %s (request %s, attempt %d)",
		c.serviceName, method, url, resp.StatusCode, duration.Round(time.Millisecond), requestID, attempt)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, 0, &AuthError{Service: c.serviceName}

	case resp.StatusCode == http.StatusTooManyRequests:
		ra := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, ra, &RateLimitError{Service: c.serviceName, RetryAfter: ra}

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, 0, &APIError{
			Service:    c.serviceName,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Message:    string(msg),
		}
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return data, 0, nil
}

func parseRetryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		seconds = 5
	}
	return time.Duration(seconds) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
