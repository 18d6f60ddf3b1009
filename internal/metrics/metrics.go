// Package metrics holds the prometheus collectors the client updates. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the client's collectors.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RetriesTotal     *prometheus.CounterVec
	RateLimitWaits   prometheus.Counter
	RateLimitSeconds prometheus.Counter
	TokenFetches     *prometheus.CounterVec
	CacheAccess      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Collectors that
// are already registered (a second client on the same registry) are reused.
// A nil reg returns nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servicetitan_api_requests_total",
				Help: "Total number of ServiceTitan API requests (by folder, method and status).",
			},
			[]string{"folder", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "servicetitan_api_request_duration_seconds",
				Help:    "Duration of ServiceTitan API requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms → ~20s
			},
			[]string{"folder", "method"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servicetitan_api_retries_total",
				Help: "Retries of transient failures.",
			},
			[]string{"reason"}, // server | network
		),
		RateLimitWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "servicetitan_rate_limit_waits_total",
			Help: "Number of times the client waited on a rate-limit signal.",
		}),
		RateLimitSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "servicetitan_rate_limit_wait_seconds_total",
			Help: "Seconds spent waiting on rate-limit signals.",
		}),
		TokenFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servicetitan_token_fetches_total",
				Help: "Access token requests to the identity endpoint.",
			},
			[]string{"result"}, // ok | error
		),
		CacheAccess: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servicetitan_cache_access_total",
				Help: "Reference-data cache lookups.",
			},
			[]string{"result"}, // hit | miss
		),
	}

	var err error

	m.RequestsTotal, err = register(reg, m.RequestsTotal)
	if err != nil {
		return nil, err
	}

	m.RequestDuration, err = register(reg, m.RequestDuration)
	if err != nil {
		return nil, err
	}

	m.RetriesTotal, err = register(reg, m.RetriesTotal)
	if err != nil {
		return nil, err
	}

	m.RateLimitWaits, err = register(reg, m.RateLimitWaits)
	if err != nil {
		return nil, err
	}

	m.RateLimitSeconds, err = register(reg, m.RateLimitSeconds)
	if err != nil {
		return nil, err
	}

	m.TokenFetches, err = register(reg, m.TokenFetches)
	if err != nil {
		return nil, err
	}

	m.CacheAccess, err = register(reg, m.CacheAccess)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(C)
		if ok {
			return existing, nil
		}
	}

	return collector, err
}

// ObserveRequest records one completed HTTP exchange.
func (m *Metrics) ObserveRequest(folder, method string, status int, start time.Time) {
	if m == nil {
		return
	}

	m.RequestsTotal.WithLabelValues(folder, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(folder, method).Observe(time.Since(start).Seconds())
}

// IncRetry counts a retry of a transient failure.
func (m *Metrics) IncRetry(reason string) {
	if m == nil {
		return
	}

	m.RetriesTotal.WithLabelValues(reason).Inc()
}

// ObserveRateLimit counts a rate-limit wait of d.
func (m *Metrics) ObserveRateLimit(d time.Duration) {
	if m == nil {
		return
	}

	m.RateLimitWaits.Inc()
	m.RateLimitSeconds.Add(d.Seconds())
}

// IncTokenFetch counts a token request by result.
func (m *Metrics) IncTokenFetch(result string) {
	if m == nil {
		return
	}

	m.TokenFetches.WithLabelValues(result).Inc()
}

// IncCache counts a cache lookup by result.
func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}

	m.CacheAccess.WithLabelValues(result).Inc()
}
