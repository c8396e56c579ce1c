// Package main provides the entry point for the vidmerge server.
//
// vidmerge resolves a YouTube link into its audio-only and video-only
// encodings, streams either leg directly to the client, or merges one of
// each into a single container by running ffmpeg with stream copy and
// relaying its output as it is produced. Nothing is written to disk.
//
// # Application Lifecycle
//
//  1. Configuration Loading: sizes GOMEMLIMIT, reads .env and environment variables
//  2. Metrics: registers observers and pre-populates label sets
//  3. Extractor: builds the cookie-carrying HTTP client and catalog resolver
//  4. Multiplexer: checks the ffmpeg binary and sizes the session pool
//  5. HTTP Server Setup: routes, middleware, metrics server
//  6. Graceful Shutdown: handles SIGINT/SIGTERM
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8000):
//     - Video API at the root and under /api/videos
//     - Health checks and build information
//     - Static front end from STATIC_DIR
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
//   - PORT: Main HTTP server port (default: 8000)
//   - METRICS_PORT: Metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable metrics server (default: true)
//   - STATIC_DIR: Front-end directory (default: ./public)
//   - YOUTUBE_COOKIE: Cookie bundle in "a=1; b=2" form
//   - FFMPEG_PATH: ffmpeg binary (default: ffmpeg)
//   - MUX_KILL_GRACE: Interrupt-to-kill grace for ffmpeg (default: 5s)
//   - MUX_MAX_SESSIONS: Concurrent mux sessions (default: CPU count, max 16)
//   - MUX_ADMIT_TIMEOUT: Wait for a free session before 503 (default: 15s)
//   - STREAM_IDLE_TIMEOUT: Upstream stall timeout (default: 30s)
//   - WRITE_TIMEOUT: Per-write timeout to clients (default: 30s)
//   - EXTRACTOR_TIMEOUT: Response header timeout for upstream (default: 20s)
//   - EXTRACTOR_RETRIES: Metadata retries on transient errors (default: 2)
//   - MEMORY_LIMIT: Container memory limit in bytes for GOMEMLIMIT
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap (default: 0.6)
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//
// # Graceful Shutdown
//
// The application handles SIGINT and SIGTERM signals gracefully:
//
//  1. Abort live mux sessions and wait for every ffmpeg process to exit
//  2. Shutdown main HTTP server
//  3. Shutdown metrics server (if running)
//  4. Stop metrics collector
//
// All steps share a 30s timeout.
//
// # Related Packages
//
//   - [vidmerge/internal/catalog]: Link validation and encoding catalog
//   - [vidmerge/internal/source]: Network-backed elementary streams
//   - [vidmerge/internal/remux]: ffmpeg session management
//   - [vidmerge/internal/handlers]: HTTP request handlers
//   - [vidmerge/internal/middleware]: HTTP middleware (logging, metrics, compression)
//   - [vidmerge/internal/memory]: GOMEMLIMIT sizing and merge backpressure
//   - [vidmerge/internal/startup]: Configuration and initialization
package main
