// Package metrics holds the Prometheus collectors shared by the HTTP layer,
// the services and the background workers. Collectors are usable before
// Register is called, which keeps services testable without a registry.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skiptube_votes_total",
			Help: "Votes processed, by vote kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	CategoryVotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skiptube_category_votes_total",
			Help: "Category votes processed, by outcome.",
		},
		[]string{"outcome"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skiptube_submissions_total",
			Help: "Segment submissions, by outcome.",
		},
		[]string{"outcome"},
	)

	SegmentsServed = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skiptube_segments_served",
			Help:    "Number of segments returned per lookup.",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skiptube_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skiptube_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skiptube_cache_hits_total",
			Help: "Redis cache hits, by keyspace.",
		},
		[]string{"keyspace"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skiptube_cache_misses_total",
			Help: "Redis cache misses, by keyspace.",
		},
		[]string{"keyspace"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skiptube_notifications_total",
			Help: "Outbound webhook deliveries, by target and status.",
		},
		[]string{"target", "status"},
	)

	InvalidationBatch = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skiptube_cache_invalidation_batch_size",
			Help:    "Videos invalidated per change-notification batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
)

// Register adds every collector to the default registry, plus live pool
// gauges when pool is non-nil. Call once at startup.
func Register(pool *pgxpool.Pool) {
	if pool != nil {
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "skiptube_db_connection_pool_active",
					Help: "Number of active database connections.",
				},
				func() float64 { return float64(pool.Stat().AcquiredConns()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "skiptube_db_connection_pool_idle",
					Help: "Number of idle database connections.",
				},
				func() float64 { return float64(pool.Stat().IdleConns()) },
			),
		)
	}

	prometheus.MustRegister(
		VotesTotal,
		CategoryVotesTotal,
		SubmissionsTotal,
		SegmentsServed,
		RequestDuration,
		RequestsInFlight,
		CacheHits,
		CacheMisses,
		NotificationsTotal,
		InvalidationBatch,
	)
}
