// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read from environment variables via [LoadConfig]. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
//
//   - PORT: HTTP server port (default: 8000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - STATIC_DIR: Front-end directory (default: ./public)
//   - YOUTUBE_COOKIE: Cookie bundle "a=1; b=2" sent to the video host
//   - FFMPEG_PATH: Multiplexer binary (default: ffmpeg)
//   - MUX_KILL_GRACE: Interrupt-to-kill grace period (default: 5s)
//   - MUX_MAX_SESSIONS: Concurrent mux sessions (default: one per CPU)
//   - MUX_ADMIT_TIMEOUT: Wait for a free mux slot (default: 15s)
//   - STREAM_IDLE_TIMEOUT: Source stall timeout (default: 30s)
//   - WRITE_TIMEOUT: Per-write timeout to clients (default: 30s)
//   - EXTRACTOR_TIMEOUT: Response-header timeout for the video host (default: 20s)
//   - EXTRACTOR_RETRIES: Metadata retries on transient errors (default: 2)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// A missing cookie bundle is a warning, not an error.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogExtractorInit]: Cookie jar size
//   - [LogMuxInit]: Session limits and ffmpeg availability
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
