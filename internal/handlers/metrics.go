package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns the Prometheus handler for the default registry.
// Collection errors are logged and the remaining metrics still served.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          promLogger{},
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}

// promLogger adapts the component logger to promhttp.Logger.
type promLogger struct{}

func (promLogger) Println(v ...interface{}) {
	log.Error("metrics: %v", fmt.Sprint(v...))
}
