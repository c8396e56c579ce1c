package middleware

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// responseWriter records what the handler sent for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
	aborted      bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer for
// write deadlines.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths       []string
	SkipExtensions  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig returns the default logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipExtensions:  []string{".css", ".js", ".ico", ".png", ".jpg", ".jpeg", ".svg", ".woff", ".woff2"},
		LogStaticFiles:  false,
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

type annotationsKey struct{}

// annotations are request facts only the handler knows, such as the
// encodings served and the mux session id.
type annotations struct {
	mu     sync.Mutex
	fields []string
}

// Annotate adds key=value to the access log line of the request carried
// by ctx. It does nothing for requests that bypass Logger.
func Annotate(ctx context.Context, key, value string) {
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok {
		return
	}
	a.mu.Lock()
	a.fields = append(a.fields, key+"="+value)
	a.mu.Unlock()
}

func (a *annotations) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.fields, ";")
}

// Logger returns HTTP logging middleware. Each request produces one line:
//
//	date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken sc(Content-Encoding) x-annotations cs(User-Agent)
//
// A transfer the handler aborted after the status line went out is logged
// with status 499.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			notes := &annotations{}
			r = r.WithContext(context.WithValue(r.Context(), annotationsKey{}, notes))
			wrapped := newResponseWriter(w)

			// http.ErrAbortHandler still has to reach the server.
			defer func() {
				if p := recover(); p != nil {
					wrapped.aborted = true
					log.Println(accessLine(r, wrapped, notes, time.Since(start)))
					panic(p)
				}
			}()

			next.ServeHTTP(wrapped, r)

			log.Println(accessLine(r, wrapped, notes, time.Since(start)))
		})
	}
}

func accessLine(r *http.Request, rw *responseWriter, notes *annotations, duration time.Duration) string {
	now := time.Now().UTC()

	status := rw.statusCode
	if rw.aborted {
		status = 499
	}

	fields := []string{
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		logField(clientAddr(r)),
		logField(r.Method),
		logField(r.URL.Path),
		logField(r.URL.RawQuery),
		strconv.Itoa(status),
		strconv.FormatInt(rw.bytesWritten, 10),
		strconv.FormatInt(duration.Milliseconds(), 10),
		logField(rw.Header().Get("Content-Encoding")),
		logField(notes.String()),
		logField(r.UserAgent()),
	}
	return strings.Join(fields, " ")
}

// logField makes a client-controlled value safe for a single log line:
// line breaks become spaces, other control characters are dropped, an
// empty value is "-" and a value with blanks or quotes is quoted.
func logField(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)

	if s == "" {
		return "-"
	}
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}

	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}

	if !config.LogStaticFiles {
		lower := strings.ToLower(path)
		for _, ext := range config.SkipExtensions {
			if strings.HasSuffix(lower, ext) {
				return true
			}
		}
	}

	return false
}

// clientAddr prefers the first proxy-reported address over the peer.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
