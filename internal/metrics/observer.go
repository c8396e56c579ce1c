package metrics

import (
	"vidmerge/internal/catalog"
	"vidmerge/internal/extractor"
	"vidmerge/internal/remux"
	"vidmerge/internal/source"
)

// Observer implements the observer interfaces of the pipeline packages
// using the Prometheus metrics declared in this package.
type Observer struct{}

var (
	_ catalog.Observer        = Observer{}
	_ extractor.RetryObserver = Observer{}
	_ source.Observer         = Observer{}
	_ remux.Observer          = Observer{}
)

// NewObserver creates an observer that records pipeline metrics.
func NewObserver() Observer {
	return Observer{}
}

func (Observer) ObserveLookup(outcome string, durationSeconds float64) {
	CatalogLookupsTotal.WithLabelValues(outcome).Inc()
	CatalogLookupDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

func (Observer) ObserveRetryAttempt(op string) {
	ExtractorRetryAttempts.WithLabelValues(op).Inc()
}

func (Observer) ObserveRetrySuccess(op string) {
	ExtractorRetrySuccess.WithLabelValues(op).Inc()
}

func (Observer) ObserveRetryFailure(op string) {
	ExtractorRetryFailures.WithLabelValues(op).Inc()
}

func (Observer) ObserveRetryDuration(op string, durationSeconds float64) {
	ExtractorRetryDuration.WithLabelValues(op).Observe(durationSeconds)
}

func (Observer) ObserveStreamOpened(kind string) {
	StreamsOpenedTotal.WithLabelValues(kind).Inc()
}

func (Observer) ObserveStreamBytes(kind string, n int) {
	StreamBytesTotal.WithLabelValues(kind).Add(float64(n))
}

func (Observer) ObserveStreamOutcome(kind, state string) {
	StreamOutcomesTotal.WithLabelValues(kind, state).Inc()
}

func (Observer) ObserveSessionStarted(format string) {
	MuxSessionsStarted.WithLabelValues(format).Inc()
}

func (Observer) ObserveSessionFinished(format, state string, durationSeconds float64, bytesOut int64) {
	MuxSessionOutcomes.WithLabelValues(format, state).Inc()
	MuxSessionDuration.WithLabelValues(format, state).Observe(durationSeconds)
	MuxBytesOutTotal.WithLabelValues(format).Add(float64(bytesOut))
}

func (Observer) ObserveStartFailure(reason string) {
	MuxStartFailures.WithLabelValues(reason).Inc()
}
