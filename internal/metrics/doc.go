// Package metrics provides Prometheus instrumentation for vidmerge.
//
// All metrics are prefixed with "vidmerge_" and registered through promauto
// at package init.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Pipeline Metrics
//
//   - CatalogLookupsTotal, CatalogLookupDuration: link resolution by outcome
//   - ExtractorRetry*: retries of transient extractor failures
//   - StreamsOpenedTotal, StreamBytesTotal, StreamOutcomesTotal: upstream legs
//   - MuxSessions*, MuxBytesOutTotal, MuxStartFailures: ffmpeg sessions
//   - TransferBytesTotal, TransferOutcomesTotal: bytes and outcomes per route
//
// The pipeline packages do not import this package. They declare small
// observer interfaces, implemented here by [Observer] and wired in main:
//
//	obs := metrics.NewObserver()
//	extractor.SetObserver(obs)
//	muxer := remux.New(muxConfig, obs)
//
// # Collector
//
// [Collector] samples the muxer periodically for the active-session and
// ffmpeg-availability gauges:
//
//	collector := metrics.NewCollector(muxer, config.MuxMaxSessions, 15*time.Second)
//	collector.Start()
//	defer collector.Stop()
//
// # Initialization
//
// [InitializeMetrics] pre-populates every known label combination so each
// series is present from the first scrape.
package metrics
