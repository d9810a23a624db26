package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion service

var (
	// Source site request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumo_requests_total",
			Help: "Total number of requests issued to the source site",
		},
		[]string{"endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sumo_request_duration_seconds",
			Help:    "Duration of source site requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumo_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumo_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Ingestion metrics
	MatchesFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumo_matches_found_total",
			Help: "Total number of match records parsed from the source",
		},
	)

	MatchesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumo_matches_stored_total",
			Help: "Total number of new match records persisted",
		},
	)

	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumo_duplicates_skipped_total",
			Help: "Total number of duplicate match records skipped",
		},
	)

	TournamentsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumo_tournaments_imported_total",
			Help: "Total number of tournament imports by outcome",
		},
		[]string{"status"},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sumo_tournament_import_duration_seconds",
			Help:    "Duration of single tournament imports in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumo_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumo_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulUpdate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumo_last_successful_update_timestamp",
			Help: "Timestamp of the last successful daily update",
		},
	)
)

// RecordRequest records a source site request metric
func RecordRequest(endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordStoreResult records the outcome of one dedup store batch
func RecordStoreResult(found, stored, duplicates int) {
	MatchesFound.Add(float64(found))
	MatchesStored.Add(float64(stored))
	DuplicatesSkipped.Add(float64(duplicates))
}

// RecordImport records a tournament import
func RecordImport(status string, duration float64) {
	TournamentsImported.WithLabelValues(status).Inc()
	ImportDuration.Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
