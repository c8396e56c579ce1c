package metrics

// Label values known ahead of time.
var (
	lookupOutcomes   = []string{"ok", "invalid", "not_found"}
	streamKinds      = []string{"audio", "video"}
	terminalStates   = []string{"completed", "failed", "aborted"}
	muxFormats       = []string{"mp4", "webm", "matroska"}
	transferRoutes   = []string{"video", "audio", "merge"}
	transferOutcomes = []string{"completed", "failed", "client_gone", "timeout"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range lookupOutcomes {
		CatalogLookupsTotal.WithLabelValues(outcome)
		CatalogLookupDuration.WithLabelValues(outcome)
	}

	ExtractorRetryAttempts.WithLabelValues("metadata")
	ExtractorRetrySuccess.WithLabelValues("metadata")
	ExtractorRetryFailures.WithLabelValues("metadata")
	ExtractorRetryDuration.WithLabelValues("metadata")

	for _, kind := range streamKinds {
		StreamsOpenedTotal.WithLabelValues(kind)
		StreamBytesTotal.WithLabelValues(kind)
		for _, state := range terminalStates {
			StreamOutcomesTotal.WithLabelValues(kind, state)
		}
	}

	for _, format := range muxFormats {
		MuxSessionsStarted.WithLabelValues(format)
		MuxBytesOutTotal.WithLabelValues(format)
		for _, state := range terminalStates {
			MuxSessionOutcomes.WithLabelValues(format, state)
			MuxSessionDuration.WithLabelValues(format, state)
		}
	}
	MuxStartFailures.WithLabelValues("start")

	for _, route := range transferRoutes {
		TransferBytesTotal.WithLabelValues(route)
		for _, outcome := range transferOutcomes {
			TransferOutcomesTotal.WithLabelValues(route, outcome)
		}
	}

	ThumbnailRequestsTotal.WithLabelValues("success")
	ThumbnailRequestsTotal.WithLabelValues("error")
}
