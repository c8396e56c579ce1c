package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidmerge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidmerge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Catalog metrics
var (
	CatalogLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_catalog_lookups_total",
			Help: "Total number of catalog lookups by outcome",
		},
		[]string{"outcome"}, // "ok", "invalid", "not_found"
	)

	CatalogLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidmerge_catalog_lookup_duration_seconds",
			Help:    "Catalog lookup duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

// Extractor retry metrics
var (
	ExtractorRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_extractor_retry_attempts_total",
			Help: "Total number of extractor retry attempts",
		},
		[]string{"operation"},
	)

	ExtractorRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_extractor_retry_success_total",
			Help: "Total number of extractor calls that succeeded after retrying",
		},
		[]string{"operation"},
	)

	ExtractorRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_extractor_retry_failures_total",
			Help: "Total number of extractor calls that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	ExtractorRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidmerge_extractor_retry_duration_seconds",
			Help:    "Total time spent in extractor calls that needed retries",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

// Source stream metrics
var (
	StreamsOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_streams_opened_total",
			Help: "Total number of upstream streams opened",
		},
		[]string{"kind"}, // "audio", "video"
	)

	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_stream_bytes_total",
			Help: "Total bytes read from upstream streams",
		},
		[]string{"kind"},
	)

	StreamOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_stream_outcomes_total",
			Help: "Upstream stream terminal outcomes",
		},
		[]string{"kind", "state"}, // state: "completed", "failed", "aborted"
	)
)

// Mux metrics
var (
	MuxSessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_mux_sessions_started_total",
			Help: "Total number of ffmpeg mux sessions started",
		},
		[]string{"format"},
	)

	MuxSessionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_mux_session_outcomes_total",
			Help: "Mux session terminal outcomes",
		},
		[]string{"format", "state"},
	)

	MuxSessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidmerge_mux_session_duration_seconds",
			Help:    "Mux session duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"format", "state"},
	)

	MuxBytesOutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_mux_bytes_out_total",
			Help: "Total muxed bytes read from ffmpeg",
		},
		[]string{"format"},
	)

	MuxStartFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_mux_start_failures_total",
			Help: "Total number of ffmpeg processes that failed to start",
		},
		[]string{"reason"},
	)

	MuxSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidmerge_mux_sessions_active",
			Help: "Number of ffmpeg mux sessions currently running",
		},
	)

	MuxSessionsMax = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidmerge_mux_sessions_max",
			Help: "Configured limit of concurrent mux sessions",
		},
	)

	MuxAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidmerge_mux_ffmpeg_available",
			Help: "Whether the ffmpeg binary can be found (1 = yes, 0 = no)",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidmerge_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidmerge_memory_paused",
			Help: "Whether new merges are refused because of memory pressure (1 = yes, 0 = no)",
		},
	)

	MemoryPressureEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vidmerge_memory_pressure_events_total",
			Help: "Total number of times memory usage crossed the critical mark",
		},
	)
)

// Transfer metrics
var (
	TransferBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_transfer_bytes_total",
			Help: "Total bytes written to clients",
		},
		[]string{"route"},
	)

	TransferOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_transfer_outcomes_total",
			Help: "Client transfer outcomes",
		},
		[]string{"route", "outcome"}, // outcome: "completed", "failed", "client_gone", "timeout"
	)

	ThumbnailRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidmerge_thumbnail_requests_total",
			Help: "Total number of thumbnail proxy requests",
		},
		[]string{"status"}, // "success", "error"
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vidmerge_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
