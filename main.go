package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidmerge/internal/catalog"
	"vidmerge/internal/extractor"
	"vidmerge/internal/handlers"
	"vidmerge/internal/logging"
	"vidmerge/internal/memory"
	"vidmerge/internal/metrics"
	"vidmerge/internal/middleware"
	"vidmerge/internal/remux"
	"vidmerge/internal/source"
	"vidmerge/internal/startup"
	"vidmerge/internal/streaming"
	"vidmerge/internal/thumbnail"

	"github.com/gorilla/mux"
)

const (
	// apiPrefix is where the original front end expects the API.
	apiPrefix = "/api/videos"
	// shutdownTimeout bounds draining of servers and mux sessions.
	shutdownTimeout = 30 * time.Second
	// collectInterval is how often session gauges are sampled.
	collectInterval = 15 * time.Second
)

func main() {
	startTime := time.Now()

	// Size the heap before anything allocates
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Metrics observers are installed before any component runs
	obs := metrics.NewObserver()
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	extractor.SetObserver(obs)

	// Initialize extractor
	cookies := extractor.ParseCookies(config.Cookie)
	extractorConfig := extractor.DefaultConfig()
	extractorConfig.Cookies = cookies
	extractorConfig.HeaderTimeout = config.ExtractorTimeout
	httpClient, err := extractor.NewHTTPClient(extractorConfig)
	if err != nil {
		startup.LogFatal("Failed to initialize extractor: %v", err)
	}
	client := extractor.New(httpClient)
	startup.LogExtractorInit(len(cookies))

	retry := extractor.DefaultRetryConfig()
	retry.MaxRetries = config.ExtractorRetries
	resolver := catalog.NewResolver(client,
		catalog.WithRetry(retry),
		catalog.WithObserver(obs),
	)
	src := source.New(resolver, client, config.StreamIdleTimeout, obs)

	// Initialize multiplexer
	muxConfig := remux.DefaultConfig()
	muxConfig.FFmpegPath = config.FFmpegPath
	muxConfig.KillGrace = config.MuxKillGrace
	muxConfig.MaxSessions = config.MuxMaxSessions
	muxConfig.AdmitTimeout = config.MuxAdmitTimeout
	muxer := remux.New(muxConfig, obs)
	startup.LogMuxInit(config.FFmpegPath, config.MuxMaxSessions, config.MuxKillGrace)

	collector := metrics.NewCollector(muxer, config.MuxMaxSessions, collectInterval)
	collector.Start()

	monitor := memory.NewMonitor(memory.DefaultMonitorConfig())
	monitor.Start()

	// Initialize handlers
	transfer := streaming.DefaultTimeoutWriterConfig()
	transfer.WriteTimeout = config.WriteTimeout
	h := handlers.New(handlers.Config{
		Resolver:   resolver,
		Source:     src,
		Muxer:      muxer,
		Thumbnails: thumbnail.New(httpClient),
		Pressure:   monitor,
		Transfer:   transfer,
	})

	// Setup router
	router := setupRouter(h, config.StaticDir)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Middleware order, outermost first: logging, metrics, compression.
	compressionConfig := middleware.DefaultCompressionConfig()
	var handler http.Handler = middleware.Compression(compressionConfig)(router)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	// Create server. Download writes are bounded per chunk by the
	// streaming writer, so WriteTimeout is 0.
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h.MetricsHandler())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, muxer, collector, monitor)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Video API, at the root and under the original mount point
	api := r.PathPrefix(apiPrefix).Subrouter()
	registerVideoRoutes(api, h)
	registerVideoRoutes(r, h)

	// Static front end
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

func registerVideoRoutes(r *mux.Router, h *handlers.Handlers) {
	r.HandleFunc("/info", h.GetInfo).Methods("GET")
	r.HandleFunc("/download", h.DownloadMerge).Methods("GET")
	r.HandleFunc("/download-video", h.DownloadVideo).Methods("GET")
	r.HandleFunc("/download-audio", h.DownloadAudio).Methods("GET")
	r.HandleFunc("/download-merge", h.DownloadMerge).Methods("GET")
	r.HandleFunc("/thumbnail", h.GetThumbnail).Methods("GET", "HEAD")
}

func newMetricsServer(port string, handler http.Handler) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", handler)

	return &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, muxer *remux.Muxer, collector *metrics.Collector, monitor *memory.Monitor) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Open downloads hold srv.Shutdown until their sessions end.
	startup.LogShutdownStep("Stopping mux sessions")
	if err := muxer.Shutdown(ctx); err != nil {
		logging.Warn("Mux shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Mux sessions stopped")
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	monitor.Stop()

	startup.LogShutdownComplete()
}
