package metrics_test

import (
	"testing"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilRegistry(t *testing.T) {
	t.Parallel()

	m, err := metrics.New(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// Methods on a nil receiver are no-ops.
	m.ObserveRequest("jpm", "GET", 200, time.Now())
	m.IncRetry("server")
	m.ObserveRateLimit(time.Second)
	m.IncTokenFetch("ok")
	m.IncCache("hit")
}

func TestNew_RecordsObservations(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.ObserveRequest("jpm", "GET", 200, time.Now())
	m.ObserveRequest("jpm", "GET", 200, time.Now())
	m.IncRetry("network")
	m.ObserveRateLimit(60 * time.Second)
	m.IncTokenFetch("ok")
	m.IncCache("miss")

	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("jpm", "GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("network")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RateLimitWaits), 0)
	assert.InDelta(t, 60, testutil.ToFloat64(m.RateLimitSeconds), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokenFetches.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheAccess.WithLabelValues("miss")), 0)
}

func TestNew_ReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	first, err := metrics.New(reg)
	require.NoError(t, err)

	second, err := metrics.New(reg)
	require.NoError(t, err)

	first.IncTokenFetch("ok")
	second.IncTokenFetch("ok")

	assert.InDelta(t, 2, testutil.ToFloat64(second.TokenFetches.WithLabelValues("ok")), 0)
}
