// Package http is the transport under every API call: one exchange with auth
// headers attached, bounded retry of server and network failures through
// go-retryablehttp, and an outer loop that waits out rate-limit signals.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/internal/metrics"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/hashicorp/go-retryablehttp"
)

//go:generate mockgen -destination=mock_header_provider_test.go -package=http_test github.com/fivetwenty-io/servicetitan-client/internal/http HeaderProvider

// HeaderProvider supplies per-request authentication headers.
type HeaderProvider interface {
	AuthHeaders(ctx context.Context) (map[string]string, error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Request describes one API call. Path may be relative to the base URL or absolute.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Form    url.Values
	Headers map[string]string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client performs API calls.
type Client struct {
	baseURL           string
	headers           HeaderProvider
	retryClient       *retryablehttp.Client
	logger            Logger
	debug             bool
	userAgent         string
	sleeper           servicetitan.Sleeper
	rateLimitRetryMax int
	metrics           *metrics.Metrics
	chain             *InterceptorChain
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig bounds retries of 5xx responses and network errors.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryClient.RetryMax = retryMax
		c.retryClient.RetryWaitMin = waitMin
		c.retryClient.RetryWaitMax = waitMax
	}
}

// WithTimeout bounds a single HTTP exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.retryClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.retryClient.HTTPClient = client
		}
	}
}

// WithSleeper replaces the rate-limit sleeper.
func WithSleeper(sleeper servicetitan.Sleeper) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithRateLimitRetryMax bounds consecutive rate-limit waits. Zero waits forever.
func WithRateLimitRetryMax(limit int) Option {
	return func(c *Client) {
		c.rateLimitRetryMax = limit
	}
}

// WithMetrics records request and retry collectors.
func WithMetrics(collectors *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = collectors
	}
}

// WithInterceptors appends request and response interceptors.
func WithInterceptors(chain *InterceptorChain) Option {
	return func(c *Client) {
		c.chain.Merge(chain)
	}
}

// NewClient creates a client. headers may be nil for unauthenticated calls.
func NewClient(baseURL string, headers HeaderProvider, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	retryClient.Logger = nil
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.CheckRetry = checkRetry
	retryClient.Backoff = JitterBackoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		headers:     headers,
		retryClient: retryClient,
		logger:      servicetitan.NoopLogger{},
		userAgent:   constants.DefaultUserAgent,
		chain:       NewInterceptorChain(),
	}

	client.chain.AddRequestInterceptor(RequestIDInterceptor())

	for _, opt := range opts {
		opt(client)
	}

	if client.sleeper == nil {
		client.sleeper = NewCountdownSleeper(client.logger)
	}

	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt == 0 {
			return
		}

		client.metrics.IncRetry("transient")
		client.logger.Warn("Retrying request", map[string]interface{}{
			"method":  req.Method,
			"url":     RedactURL(req.URL.String()),
			"attempt": attempt,
		})
	}

	if client.debug {
		client.chain.AddRequestInterceptor(DebugRequestInterceptor(client.logger))
		client.chain.AddResponseInterceptor(DebugResponseInterceptor(client.logger))
	}

	return client
}

// Do performs req, waiting out rate-limit signals. A non-2xx response is
// returned together with an *servicetitan.HTTPError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	rateLimited := 0

	for {
		resp, err := c.exchange(ctx, req)
		if err != nil {
			return resp, err
		}

		result := classify(req.Method, c.resolveURL(req), resp)

		switch result.kind {
		case outcomeSuccess:
			return resp, nil
		case outcomeError:
			return resp, result.err
		case outcomeRateLimited:
			rateLimited++

			if c.rateLimitRetryMax > 0 && rateLimited > c.rateLimitRetryMax {
				return resp, &servicetitan.RateLimitError{Attempts: rateLimited, Wait: result.wait}
			}

			c.metrics.ObserveRateLimit(result.wait)
			c.logger.Warn("Rate limited, waiting before retry", map[string]interface{}{
				"method":       req.Method,
				"path":         RedactURL(req.Path),
				"wait_seconds": result.wait.Seconds(),
				"attempt":      rateLimited,
			})

			err = c.sleeper.Sleep(ctx, result.wait)
			if err != nil {
				return nil, fmt.Errorf("waiting for rate limit: %w", err)
			}
		}
	}
}

// exchange performs one request, including bounded transient retries.
func (c *Client) exchange(ctx context.Context, req *Request) (*Response, error) {
	target := c.resolveURL(req)

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if c.headers != nil {
		authHeaders, err := c.headers.AuthHeaders(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving auth headers: %w", err)
		}

		for key, value := range authHeaders {
			httpReq.Header.Set(key, value)
		}
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	err = c.chain.ExecuteRequestInterceptors(ctx, httpReq.Request)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	httpResp, err := c.retryClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, RedactURL(target), ctxErr)
		}

		return nil, fmt.Errorf("%w: %s %s: %w", servicetitan.ErrTransientNetwork, req.Method, RedactURL(target), err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", servicetitan.ErrTransientNetwork, err)
	}

	c.metrics.ObserveRequest(folderOf(target), req.Method, httpResp.StatusCode, start)

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}

	err = c.chain.ExecuteResponseInterceptors(ctx, httpReq.Request, resp)
	if err != nil {
		return resp, err
	}

	return resp, nil
}

func (c *Client) resolveURL(req *Request) string {
	target := req.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimPrefix(target, "/")
	}

	if len(req.Query) == 0 {
		return target
	}

	separator := "?"
	if strings.Contains(target, "?") {
		separator = "&"
	}

	return target + separator + req.Query.Encode()
}

func encodeBody(req *Request) (interface{}, string, error) {
	if req.Form != nil {
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	}

	switch body := req.Body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return body, "application/json", nil
	case json.RawMessage:
		return []byte(body), "application/json", nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}

		return data, "application/json", nil
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// checkRetry leaves 429 to the rate-limit loop and defers to the library
// policy for everything else.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, err
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// folderOf returns the first path segment, the API folder, for metric labels.
func folderOf(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return "unknown"
	}

	segment, _, _ := strings.Cut(strings.TrimPrefix(parsed.Path, "/"), "/")
	if segment == "" {
		return "root"
	}

	return segment
}
