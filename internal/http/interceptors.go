package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// HeaderRequestID correlates the debug log lines of one exchange.
const HeaderRequestID = "X-Request-ID"

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// ResponseInterceptor is called after a response is read.
type ResponseInterceptor func(ctx context.Context, req *http.Request, resp *Response) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// Merge appends other's interceptors after c's.
func (c *InterceptorChain) Merge(other *InterceptorChain) {
	if other == nil {
		return
	}

	c.requestInterceptors = append(c.requestInterceptors, other.requestInterceptors...)
	c.responseInterceptors = append(c.responseInterceptors, other.responseInterceptors...)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *http.Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *http.Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// RequestIDInterceptor tags each request with a fresh UUID unless one is set.
func RequestIDInterceptor() RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		if req.Header.Get(HeaderRequestID) == "" {
			req.Header.Set(HeaderRequestID, uuid.NewString())
		}

		return nil
	}
}

// DebugRequestInterceptor logs outgoing requests.
func DebugRequestInterceptor(logger Logger) RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		logger.Debug("HTTP Request", map[string]interface{}{
			"method":     req.Method,
			"url":        RedactURL(req.URL.String()),
			"request_id": req.Header.Get(HeaderRequestID),
		})

		return nil
	}
}

// DebugResponseInterceptor logs responses.
func DebugResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(_ context.Context, req *http.Request, resp *Response) error {
		logger.Debug("HTTP Response", map[string]interface{}{
			"status":     resp.StatusCode,
			"bytes":      len(resp.Body),
			"request_id": req.Header.Get(HeaderRequestID),
		})

		return nil
	}
}

// RateLimitInterceptor throttles outgoing requests to requestsPerSecond with
// a burst of one.
func RateLimitInterceptor(requestsPerSecond float64) RequestInterceptor {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), 1)

	return LimiterInterceptor(limiter)
}

// LimiterInterceptor waits on a shared limiter before each request.
func LimiterInterceptor(limiter *rate.Limiter) RequestInterceptor {
	return func(ctx context.Context, _ *http.Request) error {
		err := limiter.Wait(ctx)
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		return nil
	}
}

// HeaderInterceptor adds static headers to every request.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		return nil
	}
}
