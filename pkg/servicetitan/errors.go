package servicetitan

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Configuration errors.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrCredentialsRequired = errors.New("credentials are required")
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigFileExists    = errors.New("configuration file already exists")
	ErrInvalidConfigJSON   = errors.New("invalid JSON in configuration file")
	ErrMissingCredentials  = errors.New("missing required credentials")
	ErrEmptyCredentials    = errors.New("empty credentials")
	ErrUnknownEnvironment  = errors.New("unknown API environment")
	ErrInvalidTimezone     = errors.New("invalid timezone")
	ErrMissingField        = errors.New("missing credential field")
)

// Request errors.
var (
	ErrAuthFailed           = errors.New("authentication failed")
	ErrMissingAccessToken   = errors.New("token response has no access_token")
	ErrRateLimitExceeded    = errors.New("rate limit retries exhausted")
	ErrTransientNetwork     = errors.New("transient network error")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrEmptyID              = fmt.Errorf("%w: id is required", ErrUnsupportedOperation)
	ErrInvalidDate          = errors.New("invalid date")
)

// Cache errors.
var (
	ErrCacheMiss             = errors.New("key not found in cache")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrRedisConfigRequired   = errors.New("redis configuration required for redis cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
)

// ConfigError reports a credential resolution failure. Fields names the
// offending SERVICETITAN_* keys when there are any.
type ConfigError struct {
	Op     string
	Fields []string
	Err    error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, strings.Join(e.Fields, ", "))
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AuthError reports a rejected or failed client-credentials exchange. It
// never carries the client secret.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("authentication failed with status %d: %s", e.StatusCode, truncate(e.Body))
	}

	return fmt.Sprintf("authentication failed: %v", e.Err)
}

// Unwrap exposes both ErrAuthFailed and the transport cause.
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthFailed}
	}

	return []error{ErrAuthFailed, e.Err}
}

// Problem is the API's structured error body.
type Problem struct {
	Type    string              `json:"type"    yaml:"type"`
	Title   string              `json:"title"   yaml:"title"`
	Status  int                 `json:"status"  yaml:"status"`
	TraceID string              `json:"traceId" yaml:"traceId"`
	Errors  map[string][]string `json:"errors"  yaml:"errors"`
}

// HTTPError is a non-2xx response that is not a rate-limit signal.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
	Header     http.Header
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	problem := e.Problem()
	if problem != nil && problem.Title != "" {
		return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.URL, e.StatusCode, problem.Title)
	}

	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.URL, e.StatusCode, truncate(string(e.Body)))
}

// Problem parses the body as a problem document, or returns nil.
func (e *HTTPError) Problem() *Problem {
	if len(e.Body) == 0 {
		return nil
	}

	var problem Problem

	err := json.Unmarshal(e.Body, &problem)
	if err != nil {
		return nil
	}

	return &problem
}

// RateLimitError is returned once a configured rate-limit retry ceiling is hit.
type RateLimitError struct {
	Attempts int
	Wait     time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited %d times, server asked to wait %s", e.Attempts, e.Wait)
}

// Unwrap returns ErrRateLimitExceeded.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// IsNotFound checks if the error is a 404 response.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized checks if the error is a 401 response or a rejected token request.
func IsUnauthorized(err error) bool {
	authErr := &AuthError{}
	if errors.As(err, &authErr) {
		return authErr.StatusCode == http.StatusUnauthorized || authErr.StatusCode == http.StatusBadRequest
	}

	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden checks if the error is a 403 response.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsRateLimited checks if the error came from rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimitExceeded) {
		return true
	}

	return hasStatus(err, http.StatusTooManyRequests)
}

// IsServerError checks if the error is a 5xx response.
func IsServerError(err error) bool {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}

	return false
}

func hasStatus(err error, status int) bool {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == status
	}

	return false
}

const maxErrorBody = 512

func truncate(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= maxErrorBody {
		return body
	}

	return body[:maxErrorBody] + "..."
}
