package http_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	sthttp "github.com/fivetwenty-io/servicetitan-client/internal/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestTitleWait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  time.Duration
	}{
		{"standard title", "Rate limit is exceeded. Try again in 60 seconds.", 60 * time.Second},
		{"short wait", "Try again in 5 seconds.", 5 * time.Second},
		{"non-numeric word", "Too many requests.", 30 * time.Second},
		{"single word", "Throttled", 30 * time.Second},
		{"empty", "", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sthttp.TitleWait(tt.title))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"seconds", "12", 12 * time.Second},
		{"http date", now.Add(45 * time.Second).Format(http.TimeFormat), 45 * time.Second},
		{"date in the past", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"missing", "", 30 * time.Second},
		{"garbage", "soon", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sthttp.RetryAfter(tt.header, now))
		})
	}
}

func TestJitterBackoff(t *testing.T) {
	t.Parallel()

	minWait := time.Second
	maxWait := 30 * time.Second

	for attempt := 0; attempt < 4; attempt++ {
		base := minWait << attempt
		wait := sthttp.JitterBackoff(minWait, maxWait, attempt, nil)

		assert.GreaterOrEqual(t, wait, base, "attempt %d", attempt)
		assert.Less(t, wait, base+minWait, "attempt %d", attempt)
	}

	assert.Equal(t, maxWait, sthttp.JitterBackoff(minWait, maxWait, 10, nil))
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "no query",
			raw:  "https://api.servicetitan.io/jpm/v2/tenant/1/jobs",
			want: "https://api.servicetitan.io/jpm/v2/tenant/1/jobs",
		},
		{
			name: "innocent query",
			raw:  "https://api.servicetitan.io/jpm/v2/tenant/1/jobs?page=2",
			want: "https://api.servicetitan.io/jpm/v2/tenant/1/jobs?page=2",
		},
		{
			name: "secret values masked",
			raw:  "https://auth.servicetitan.io/connect/token?client_secret=shh&page=1",
			want: "https://auth.servicetitan.io/connect/token?client_secret=%2A%2A%2A&page=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sthttp.RedactURL(tt.raw))
		})
	}
}

func TestCountdownSleeper(t *testing.T) {
	t.Parallel()

	t.Run("returns after the duration", func(t *testing.T) {
		t.Parallel()

		sleeper := sthttp.NewCountdownSleeper(&MockLogger{})
		start := time.Now()

		err := sleeper.Sleep(context.Background(), 20*time.Millisecond)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("non-positive duration", func(t *testing.T) {
		t.Parallel()

		sleeper := sthttp.NewCountdownSleeper(nil)
		require.NoError(t, sleeper.Sleep(context.Background(), 0))
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		sleeper := sthttp.NewCountdownSleeper(nil)

		err := sleeper.Sleep(ctx, time.Hour)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestInterceptors(t *testing.T) {
	t.Parallel()

	t.Run("request id is preserved when set", func(t *testing.T) {
		t.Parallel()

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)
		req.Header.Set(sthttp.HeaderRequestID, "fixed")

		require.NoError(t, sthttp.RequestIDInterceptor()(context.Background(), req))
		assert.Equal(t, "fixed", req.Header.Get(sthttp.HeaderRequestID))
	})

	t.Run("chain stops on first failure", func(t *testing.T) {
		t.Parallel()

		limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
		chain := sthttp.NewInterceptorChain()
		chain.AddRequestInterceptor(sthttp.HeaderInterceptor(map[string]string{"X-Trace": "1"}))
		chain.AddRequestInterceptor(sthttp.LimiterInterceptor(limiter))

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)

		require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), req))
		assert.Equal(t, "1", req.Header.Get("X-Trace"))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err = chain.ExecuteRequestInterceptors(ctx, req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limiter")
	})
}
