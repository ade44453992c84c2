package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PositionsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_positions_ingested_total",
		Help: "Position events applied to the tracker",
	})
	PositionsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_positions_suppressed_total",
		Help: "Position deltas below the noise threshold",
	})
	TripRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_trip_refreshes_total",
		Help: "Coarse trip list refreshes triggered by trip events",
	})
	ReroutesRequested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_reroutes_requested_total",
		Help: "Reroute requests raised by the route follower",
	})
	ReroutesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_reroutes_suppressed_total",
		Help: "Reroute requests dropped by the per-driver gate",
	})
	DirectionsFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_directions_fetches_total",
		Help: "Calls to the external directions provider",
	})
	DirectionsCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_directions_cache_hits_total",
		Help: "Directions served from the per-session cache",
	})
	DirectionsCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_directions_cache_misses_total",
		Help: "Directions lookups that required a provider fetch",
	})
	FeedDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_feed_decode_errors_total",
		Help: "Realtime feed payloads that failed decoding or validation",
	})
	StaleResultsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleettrack_stale_results_discarded_total",
		Help: "Async routing results discarded after context invalidation",
	})
	DirectionsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleettrack_directions_latency_seconds",
		Help:    "Latency of directions provider fetches",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveDirectionsLatency records one provider round-trip.
func ObserveDirectionsLatency(start time.Time) {
	DirectionsLatency.Observe(time.Since(start).Seconds())
}

// StartServer serves /metrics and /healthz on its own port. Blocks.
func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
