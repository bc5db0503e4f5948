// Package metrics holds the Prometheus collectors the broker, the provider
// client and the HTTP server update.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "livetrans"

var (
	once sync.Once

	// RequestsTotal counts translate requests by outcome
	// (translated, skipped, error, shed).
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broker",
		Name:      "requests_total",
		Help:      "Total number of translate requests handled, labeled by result.",
	}, []string{"result"})

	// SkipsTotal counts skipped requests by reason.
	SkipsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broker",
		Name:      "skips_total",
		Help:      "Total number of translate requests skipped, labeled by reason.",
	}, []string{"reason"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total number of result cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total number of result cache misses.",
	})

	// CacheEntries is the current number of cached results.
	CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Current number of entries in the result cache.",
	})

	// CoalescedTotal counts requests that waited on an identical in-flight call.
	CoalescedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broker",
		Name:      "coalesced_total",
		Help:      "Total number of requests served by an identical in-flight provider call.",
	})

	// FallbackTotal counts keyed-provider requests served by the free provider
	// because no API key was configured.
	FallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broker",
		Name:      "free_fallback_total",
		Help:      "Total number of requests for a keyed provider served by the free provider.",
	})

	QueuePending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "pending",
		Help:      "Current number of tasks waiting for admission.",
	})

	QueueRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "running",
		Help:      "Current number of admitted tasks.",
	})

	QueueShedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "shed_total",
		Help:      "Total number of tasks rejected by the overflow trim.",
	})

	// ProviderCallsTotal counts upstream calls by provider and outcome.
	ProviderCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "calls_total",
		Help:      "Total number of provider calls, labeled by provider and outcome.",
	}, []string{"provider", "outcome"})

	ProviderDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "call_duration_seconds",
		Help:      "Wall time of provider calls.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 20},
	}, []string{"provider"})

	// HTTPRequestsTotal counts inbound messages by type and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound messages, labeled by message type and status code.",
	}, []string{"type", "code"})
)

// Register registers the collectors with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			SkipsTotal,
			CacheHitsTotal,
			CacheMissesTotal,
			CacheEntries,
			CoalescedTotal,
			FallbackTotal,
			QueuePending,
			QueueRunning,
			QueueShedTotal,
			ProviderCallsTotal,
			ProviderDurationSeconds,
			HTTPRequestsTotal,
		)
	})
}
