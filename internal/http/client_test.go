package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sthttp "github.com/fivetwenty-io/servicetitan-client/internal/http"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.record("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

// recordingSleeper returns immediately and remembers every requested wait.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waits = append(s.waits, d)

	return ctx.Err()
}

func (s *recordingSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.waits...)
}

func fastRetry() sthttp.Option {
	return sthttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/jpm/v2/tenant/12345/jobs/67890", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "app-key", request.Header.Get("ST-App-Key"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.NotEmpty(t, request.Header.Get(sthttp.HeaderRequestID))

			_ = json.NewEncoder(writer).Encode(map[string]interface{}{"id": 67890, "summary": "Fix AC"})
		}))
		defer server.Close()

		ctrl := gomock.NewController(t)
		headers := NewMockHeaderProvider(ctrl)
		headers.EXPECT().AuthHeaders(gomock.Any()).Return(map[string]string{
			"Authorization": "Bearer test-token",
			"ST-App-Key":    "app-key",
		}, nil)

		client := sthttp.NewClient(server.URL, headers)

		resp, err := client.Do(context.Background(), &sthttp.Request{
			Method: "GET",
			Path:   "/jpm/v2/tenant/12345/jobs/67890",
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result map[string]interface{}

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "Fix AC", result["summary"])
	})

	t.Run("absolute url with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/jpm/v2/tenant/1/jobs", request.URL.Path)
			assert.Equal(t, "page=2&pageSize=50", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := sthttp.NewClient("https://unused.example.com", nil)

		resp, err := client.Do(context.Background(), &sthttp.Request{
			Method: "GET",
			Path:   server.URL + "/jpm/v2/tenant/1/jobs",
			Query:  url.Values{"page": []string{"2"}, "pageSize": []string{"50"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "Note text", body["text"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := sthttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &sthttp.Request{
			Method: "POST",
			Path:   "/jpm/v2/tenant/1/jobs/2/notes",
			Body:   map[string]string{"text": "Note text"},
		})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("form body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "application/x-www-form-urlencoded", request.Header.Get("Content-Type"))
			assert.NoError(t, request.ParseForm())
			assert.Equal(t, "value", request.Form.Get("key"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := sthttp.NewClient(server.URL, nil)

		_, err := client.Do(context.Background(), &sthttp.Request{
			Method: "POST",
			Path:   "/form",
			Form:   url.Values{"key": []string{"value"}},
		})
		require.NoError(t, err)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(writer).Encode(map[string]interface{}{
				"type":    "https://tools.ietf.org/html/rfc7231#section-6.5.4",
				"title":   "Job not found",
				"status":  404,
				"traceId": "00-abc-def-00",
			})
		}))
		defer server.Close()

		client := sthttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/jpm/v2/tenant/1/jobs/invalid", nil)
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.True(t, servicetitan.IsNotFound(err))

		httpErr := &servicetitan.HTTPError{}
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, "Job not found", httpErr.Problem().Title)
		assert.Contains(t, err.Error(), "Job not found")
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := sthttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &sthttp.Request{
			Method: "GET",
			Path:   "/settings/v2/tenant/1/employees",
			Headers: map[string]string{
				"X-Custom-Header": "custom-value",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("header provider failure", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		ctrl := gomock.NewController(t)
		headers := NewMockHeaderProvider(ctrl)
		headers.EXPECT().AuthHeaders(gomock.Any()).Return(nil, &servicetitan.AuthError{StatusCode: 401, Body: "invalid_client"})

		client := sthttp.NewClient(server.URL, headers)

		_, err := client.Get(context.Background(), "/jpm/v2/tenant/1/jobs", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, servicetitan.ErrAuthFailed)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := sthttp.NewClient(server.URL, nil, sthttp.WithLogger(logger), sthttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/jpm/v2/tenant/1/jobs", nil)
		require.NoError(t, err)

		// Should have logged request and response
		assert.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*sthttp.Client, context.Context) (*sthttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *sthttp.Client, ctx context.Context) (*sthttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *sthttp.Client, ctx context.Context) (*sthttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *sthttp.Client, ctx context.Context) (*sthttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: "PATCH",
			fn: func(c *sthttp.Client, ctx context.Context) (*sthttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *sthttp.Client, ctx context.Context) (*sthttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := sthttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := sthttp.NewClient(server.URL, nil, fastRetry())

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("gives up after retry budget", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadGateway)
			_, _ = writer.Write([]byte("upstream unavailable"))
		}))
		defer server.Close()

		client := sthttp.NewClient(server.URL, nil, fastRetry())

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.True(t, servicetitan.IsServerError(err))
		assert.Equal(t, int32(4), attempts.Load())
	})

	t.Run("waits out HTTP 429 with Retry-After", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 2 {
				writer.Header().Set("Retry-After", "7")
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		sleeper := &recordingSleeper{}
		client := sthttp.NewClient(server.URL, nil, fastRetry(), sthttp.WithSleeper(sleeper))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
		assert.Equal(t, []time.Duration{7 * time.Second}, sleeper.Waits())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)

			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := sthttp.NewClient(server.URL, nil, fastRetry())

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load()) // Should not retry
	})

	t.Run("network errors are transient", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		client := sthttp.NewClient(server.URL, nil, sthttp.WithRetryConfig(1, time.Millisecond, 2*time.Millisecond))

		_, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, servicetitan.ErrTransientNetwork)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_InBodyRateLimit(t *testing.T) {
	t.Parallel()

	rateLimitBody := map[string]interface{}{
		"type":    "https://httpstatuses.com/429",
		"title":   "Rate limit is exceeded. Try again in 60 seconds.",
		"status":  429,
		"traceId": "00-5b0e0d8c-01",
	}

	t.Run("sleeps for the advertised wait and retries once", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) == 1 {
				_ = json.NewEncoder(writer).Encode(rateLimitBody)

				return
			}

			_ = json.NewEncoder(writer).Encode(map[string]interface{}{"data": []int{1}, "hasMore": false})
		}))
		defer server.Close()

		sleeper := &recordingSleeper{}
		client := sthttp.NewClient(server.URL, nil, sthttp.WithSleeper(sleeper))

		resp, err := client.Get(context.Background(), "/jpm/v2/tenant/1/jobs", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":[1],"hasMore":false}`, string(resp.Body))
		assert.Equal(t, int32(2), attempts.Load())
		assert.Equal(t, []time.Duration{60 * time.Second}, sleeper.Waits())
	})

	t.Run("ceiling turns repeated signals into RateLimitError", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			_ = json.NewEncoder(writer).Encode(rateLimitBody)
		}))
		defer server.Close()

		sleeper := &recordingSleeper{}
		client := sthttp.NewClient(server.URL, nil, sthttp.WithSleeper(sleeper), sthttp.WithRateLimitRetryMax(2))

		_, err := client.Get(context.Background(), "/jpm/v2/tenant/1/jobs", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, servicetitan.ErrRateLimitExceeded)
		assert.True(t, servicetitan.IsRateLimited(err))

		var rateErr *servicetitan.RateLimitError
		require.True(t, errors.As(err, &rateErr))
		assert.Equal(t, 3, rateErr.Attempts)
		assert.Equal(t, int32(3), attempts.Load())
		assert.Len(t, sleeper.Waits(), 2)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			_ = json.NewEncoder(writer).Encode(rateLimitBody)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())

		client := sthttp.NewClient(server.URL, nil, sthttp.WithSleeper(servicetitan.SleeperFunc(
			func(context.Context, time.Duration) error {
				cancel()

				return context.Canceled
			})))

		_, err := client.Get(ctx, "/jpm/v2/tenant/1/jobs", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
