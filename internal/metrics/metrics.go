package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autogallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autogallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Sweep metrics
var (
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_sweep_runs_total",
			Help: "Total number of completed sweep passes",
		},
		[]string{"result"}, // "ok", "degraded", "cancelled", "error"
	)

	SweepSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autogallery_sweep_skipped_total",
			Help: "Sweep requests ignored because a pass was already running for the root",
		},
	)

	SweepRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autogallery_sweep_running",
			Help: "Whether a sweep is running for the root (1 = running, 0 = idle)",
		},
		[]string{"root"},
	)

	SweepItemsRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autogallery_sweep_items_remaining",
			Help: "Entries left to visit in the current pass",
		},
		[]string{"root"},
	)

	SweepItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_sweep_items_total",
			Help: "Entries handled by sweeps by outcome",
		},
		[]string{"outcome"}, // "generated", "exists", "ineligible", "known_failure", "failed", "write_disabled"
	)

	SweepLastDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autogallery_sweep_last_duration_seconds",
			Help: "Duration of the last sweep pass in seconds",
		},
		[]string{"root"},
	)

	SweepLastTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autogallery_sweep_last_timestamp",
			Help: "Unix timestamp of the last sweep pass completion",
		},
		[]string{"root"},
	)

	SweepDegraded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autogallery_sweep_degraded",
			Help: "Whether cache writes failed during the last pass (1 = degraded)",
		},
		[]string{"root"},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_thumbnail_generations_total",
			Help: "Total number of thumbnail generation attempts by status",
		},
		[]string{"status"}, // "success", "exists", "ineligible", "error_decode", "error_write"
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autogallery_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation phase duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"phase"}, // "decode", "resize", "encode", "write", "total"
	)

	ThumbnailDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_thumbnail_decode_total",
			Help: "Images decoded for thumbnailing by format and decoder",
		},
		[]string{"format", "decoder"}, // decoder: "imaging", "vips"
	)
)

// Cache metrics
var (
	CacheArtifacts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autogallery_cache_artifacts",
			Help: "Number of thumbnail artifacts in the cache tree",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autogallery_cache_size_bytes",
			Help: "Total size of thumbnail artifacts in bytes",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_cache_lookups_total",
			Help: "Artifact existence checks made while assembling listings",
		},
		[]string{"result"}, // "hit", "miss"
	)

	CacheGCRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_cache_gc_runs_total",
			Help: "Orphan collection passes by result",
		},
		[]string{"result"},
	)

	CacheGCRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_cache_gc_removed_total",
			Help: "Entries removed by orphan collection",
		},
		[]string{"kind"}, // "artifact", "directory", "temp"
	)
)

// Listing metrics
var (
	ListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_listings_total",
			Help: "Directory listings assembled by status",
		},
		[]string{"status"}, // "ok", "not_found", "not_directory"
	)

	ListingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autogallery_listing_duration_seconds",
			Help:    "Time to assemble a directory listing",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	ListingItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autogallery_listing_items",
			Help:    "Number of entries returned per listing",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autogallery_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration including retries",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_filesystem_operation_errors_total",
			Help: "Filesystem operations that returned an error",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_filesystem_retry_attempts_total",
			Help: "Retries made after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_filesystem_retry_failures_total",
			Help: "Operations that still failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autogallery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autogallery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBFailuresRecorded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autogallery_db_thumbnail_failures",
			Help: "Thumbnail failures currently held in the ledger",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autogallery_memory_usage_ratio",
			Help: "Heap in use divided by the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autogallery_memory_paused",
			Help: "Whether sweeps are paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCForced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autogallery_memory_gc_forced_total",
			Help: "Garbage collections forced by the memory monitor",
		},
	)
)

// AppInfo carries version labels with a constant value of 1.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "autogallery_app_info",
		Help: "Application information",
	},
	[]string{"version", "commit", "go_version"},
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
