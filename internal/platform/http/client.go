package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 4 << 10

// UnlimitedRetries retries until MaxRetryTimeout elapses or the context is done
const UnlimitedRetries = -1

// Client is a wrapper for HTTP client with rate limiting
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter

	maxRetries      int
	initialInterval time.Duration
	maxRetryTimeout time.Duration
	onRetry         func(err error, next time.Duration)
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	Timeout         time.Duration // zero means no client-side timeout
	RequestsPerSec  int
	MaxRetries      int // zero sends every request exactly once
	InitialInterval time.Duration
	MaxRetryTimeout time.Duration // negative leaves the deadline to the context
	OnRetry         func(err error, next time.Duration)
}

// NewClient creates a new HTTP client with rate limiting
func NewClient(opts ClientOptions) *Client {
	// Set default values if not provided
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = backoff.DefaultInitialInterval
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		Limiter:         rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
		maxRetryTimeout: opts.MaxRetryTimeout,
		onRetry:         opts.OnRetry,
	}
}

// DoRequest performs an HTTP request with rate limiting and, when configured, retries.
// Any 2xx response is returned to the caller, who owns its body.
func (c *Client) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.do(ctx, req, c.maxRetries)
}

// DoOnce performs a single attempt regardless of the configured retry budget
func (c *Client) DoOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.do(ctx, req, 0)
}

func (c *Client) do(ctx context.Context, req *http.Request, retries int) (*http.Response, error) {
	req = req.WithContext(ctx)

	var resp *http.Response
	attempt := 0
	operation := func() error {
		// Every attempt, retries included, spends a token
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("rewinding request body: %w", err))
			}
			req.Body = body
		}
		attempt++

		var err error
		resp, err = c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := newStatusError(resp)
			// Client errors will not change on retry
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}
		return nil
	}

	// Use exponential backoff for retries
	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.InitialInterval = c.initialInterval
	backoffStrategy.MaxElapsedTime = c.maxRetryTimeout
	if c.maxRetryTimeout < 0 {
		backoffStrategy.MaxElapsedTime = 0
	}

	var strategy backoff.BackOff = backoffStrategy
	if retries >= 0 {
		strategy = backoff.WithMaxRetries(backoffStrategy, uint64(retries))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(strategy, ctx), c.onRetry); err != nil {
		return nil, err
	}

	return resp, nil
}

func newStatusError(resp *http.Response) *HTTPStatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// HTTPStatusError represents an error due to a non-2xx HTTP status code
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("non-2xx status code: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
