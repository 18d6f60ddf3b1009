// Package stclient provides the main entry point for creating ServiceTitan API clients
package stclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/client"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/prometheus/client_golang/prometheus"
)

// New creates a new ServiceTitan API client from a fully resolved config.
func New(ctx context.Context, config *servicetitan.Config) (servicetitan.Client, error) {
	if config == nil {
		return nil, servicetitan.ErrConfigRequired
	}

	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// Option adjusts the config built by Connect.
type Option func(*servicetitan.Config)

// WithLogger sets the structured logger.
func WithLogger(logger servicetitan.Logger) Option {
	return func(c *servicetitan.Config) {
		c.Logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *servicetitan.Config) {
		c.Debug = debug
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *servicetitan.Config) {
		c.HTTPClient = httpClient
	}
}

// WithTimeout bounds a single HTTP exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *servicetitan.Config) {
		c.HTTPTimeout = timeout
	}
}

// WithRetry bounds retries of server errors and network failures.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *servicetitan.Config) {
		c.RetryMax = retryMax
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

// WithRateLimitRetryMax bounds consecutive rate-limit waits.
func WithRateLimitRetryMax(limit int) Option {
	return func(c *servicetitan.Config) {
		c.RateLimitRetryMax = limit
	}
}

// WithRequestsPerSecond throttles outgoing requests.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *servicetitan.Config) {
		c.RequestsPerSecond = rps
	}
}

// WithSleeper replaces the rate-limit sleeper.
func WithSleeper(sleeper servicetitan.Sleeper) Option {
	return func(c *servicetitan.Config) {
		c.Sleeper = sleeper
	}
}

// WithCache caches reference data for ttl (zero selects the default).
func WithCache(cache servicetitan.Cache, ttl time.Duration) Option {
	return func(c *servicetitan.Config) {
		c.Cache = cache
		c.CacheTTL = ttl
	}
}

// WithMetrics registers the client's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *servicetitan.Config) {
		c.Metrics = reg
	}
}

// WithVerifyOnInit fetches a token before Connect returns.
func WithVerifyOnInit(verify bool) Option {
	return func(c *servicetitan.Config) {
		c.VerifyOnInit = verify
	}
}

// Connect resolves credentials from explicit values, a config file and the
// environment, then creates a client.
func Connect(ctx context.Context, resolve servicetitan.ResolveOptions, opts ...Option) (servicetitan.Client, error) {
	creds, err := servicetitan.ResolveCredentials(resolve)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials: %w", err)
	}

	config := &servicetitan.Config{Credentials: creds}

	for _, opt := range opts {
		opt(config)
	}

	return New(ctx, config)
}
