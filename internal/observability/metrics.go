package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignupsTotal counts signup attempts by result.
	SignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_signups_total",
		Help: "Total number of signup attempts by result",
	}, []string{"result"})

	// AuthenticationsTotal counts credential checks by result.
	AuthenticationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_authentications_total",
		Help: "Total number of authentication attempts by result",
	}, []string{"result"})

	// FollowEventsTotal counts follow graph mutations by action.
	FollowEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_follow_events_total",
		Help: "Total number of follow and unfollow operations",
	}, []string{"action"})

	// MessagesTotal counts message lifecycle events by action.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_messages_total",
		Help: "Total number of message operations by action",
	}, []string{"action"})

	// CacheResultsTotal counts cache lookups by key family and result.
	CacheResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_cache_results_total",
		Help: "Cache lookups by key family and result (hit, miss, error)",
	}, []string{"family", "result"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
