package client

import (
	"context"
	"fmt"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/auth"
	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/internal/http"
	"github.com/fivetwenty-io/servicetitan-client/internal/metrics"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
)

var (
	_ servicetitan.Client         = (*Client)(nil)
	_ servicetitan.EndpointClient = (*Endpoint)(nil)
	_ servicetitan.ReportSession  = (*Report)(nil)
	_ servicetitan.ReportsClient  = (*ReportsClient)(nil)
	_ servicetitan.DataClient     = (*DataService)(nil)
)

// Client implements the servicetitan.Client interface.
type Client struct {
	httpClient *http.Client
	tokens     *auth.ClientCredentialsManager
	session    *auth.Session
	creds      *servicetitan.Credentials
	logger     servicetitan.Logger
	metrics    *metrics.Metrics
	refs       *referenceCache

	reports *ReportsClient
	data    *DataService
}

// createTokenManager builds the client-credentials manager from config.
func createTokenManager(config *servicetitan.Config, logger servicetitan.Logger, collectors *metrics.Metrics) *auth.ClientCredentialsManager {
	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithMetrics(collectors),
	}

	if config.HTTPClient != nil {
		opts = append(opts, auth.WithHTTPClient(config.HTTPClient))
	}

	return auth.NewClientCredentialsManager(opts...)
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *servicetitan.Config, logger servicetitan.Logger, collectors *metrics.Metrics) []http.Option {
	httpOpts := []http.Option{
		http.WithLogger(logger),
		http.WithMetrics(collectors),
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPClient != nil {
		httpOpts = append(httpOpts, http.WithHTTPClient(config.HTTPClient))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.RateLimitRetryMax > 0 {
		httpOpts = append(httpOpts, http.WithRateLimitRetryMax(config.RateLimitRetryMax))
	}

	if config.Sleeper != nil {
		httpOpts = append(httpOpts, http.WithSleeper(config.Sleeper))
	}

	if config.RequestsPerSecond > 0 {
		chain := http.NewInterceptorChain()
		chain.AddRequestInterceptor(http.RateLimitInterceptor(config.RequestsPerSecond))
		httpOpts = append(httpOpts, http.WithInterceptors(chain))
	}

	return httpOpts
}

// New creates a new ServiceTitan API client.
func New(ctx context.Context, config *servicetitan.Config) (*Client, error) {
	if config == nil {
		return nil, servicetitan.ErrConfigRequired
	}

	if config.Credentials == nil {
		return nil, servicetitan.ErrCredentialsRequired
	}

	err := config.Credentials.Validate()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = servicetitan.NoopLogger{}
	}

	collectors, err := metrics.New(config.Metrics)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	tokens := createTokenManager(config, logger, collectors)
	session := tokens.Session(config.Credentials)

	httpClient := http.NewClient(config.Credentials.APIRoot, session, createHTTPClientOptions(config, logger, collectors)...)

	client := &Client{
		httpClient: httpClient,
		tokens:     tokens,
		session:    session,
		creds:      config.Credentials,
		logger:     logger,
		metrics:    collectors,
		refs:       newReferenceCache(config.Cache, config.CacheTTL, logger, collectors),
	}

	client.reports = NewReportsClient(httpClient, client.creds, logger, client.refs)
	client.data = NewDataService(func(folder, resource string) servicetitan.EndpointClient {
		return client.Endpoint(folder, resource)
	}, client.creds.Timezone, logger)

	if config.VerifyOnInit {
		_, err = client.BearerToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("verifying credentials: %w", err)
		}
	}

	return client, nil
}

// Credentials implements servicetitan.Client.Credentials.
func (c *Client) Credentials() *servicetitan.Credentials {
	return c.creds
}

// BearerToken implements servicetitan.Client.BearerToken.
func (c *Client) BearerToken(ctx context.Context) (string, error) {
	return c.session.BearerToken(ctx)
}

// AuthHeaders implements servicetitan.Client.AuthHeaders.
func (c *Client) AuthHeaders(ctx context.Context) (map[string]string, error) {
	return c.session.AuthHeaders(ctx)
}

// ClearTokenCache implements servicetitan.Client.ClearTokenCache.
func (c *Client) ClearTokenCache(creds *servicetitan.Credentials) {
	c.tokens.ClearCache(creds)
}

// Endpoint implements servicetitan.Client.Endpoint.
func (c *Client) Endpoint(folder, resource string) servicetitan.EndpointClient {
	return NewEndpoint(c.httpClient, c.creds, c.logger, folder, resource)
}

// OpenReport implements servicetitan.Client.OpenReport.
func (c *Client) OpenReport(ctx context.Context, category, reportID string) (servicetitan.ReportSession, error) {
	started := time.Now()

	report, err := openReport(ctx, c.httpClient, c.creds, c.logger, c.refs, category, reportID)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Report opened", map[string]interface{}{
		"category":   category,
		"report_id":  reportID,
		"parameters": len(report.Metadata().Parameters),
		"elapsed_ms": time.Since(started).Milliseconds(),
	})

	return report, nil
}

// Reports implements servicetitan.Client.Reports.
func (c *Client) Reports() servicetitan.ReportsClient {
	return c.reports
}

// Data implements servicetitan.Client.Data.
func (c *Client) Data() servicetitan.DataClient {
	return c.data
}
