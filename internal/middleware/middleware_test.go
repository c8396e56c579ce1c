package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"vidmerge/internal/metrics"
)

// captureLog redirects the standard logger for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestNewResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}
	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
	if rw.Unwrap() != w {
		t.Error("Expected Unwrap to return the wrapped writer")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}

	// Write header again - should be ignored
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound {
		t.Error("Status code should not change after first WriteHeader")
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}
	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytesWritten to be %d, got %d", len(data), rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		config        LoggingConfig
		expectLogging bool
	}{
		{
			name:          "Logs regular requests",
			path:          "/api/videos/info",
			config:        DefaultLoggingConfig(),
			expectLogging: true,
		},
		{
			name:          "Skips static files when configured",
			path:          "/styles.css",
			config:        LoggingConfig{LogStaticFiles: false, SkipExtensions: []string{".css"}},
			expectLogging: false,
		},
		{
			name:          "Logs health checks when enabled",
			path:          "/health",
			config:        LoggingConfig{LogHealthChecks: true},
			expectLogging: true,
		},
		{
			name:          "Skips health checks when disabled",
			path:          "/readyz",
			config:        LoggingConfig{LogHealthChecks: false},
			expectLogging: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)

			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})

			req := httptest.NewRequest(http.MethodGet, tt.path+"?v=abc", http.NoBody)
			w := httptest.NewRecorder()
			Logger(tt.config)(handler).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}

			logged := strings.Contains(buf.String(), tt.path)
			if logged != tt.expectLogging {
				t.Errorf("Expected logging=%v, got %v (%q)", tt.expectLogging, logged, buf.String())
			}
			if logged && !strings.Contains(buf.String(), " v=abc 200 2 ") {
				t.Errorf("Expected query, status and bytes in log line, got %q", buf.String())
			}
		})
	}
}

func TestLoggerRecordsAbortedTransfer(t *testing.T) {
	buf := captureLog(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("partial"))
		panic(http.ErrAbortHandler)
	})

	req := httptest.NewRequest(http.MethodGet, "/download-merge", http.NoBody)
	w := httptest.NewRecorder()

	func() {
		defer func() {
			if p := recover(); p != http.ErrAbortHandler {
				t.Errorf("Expected ErrAbortHandler to propagate, got %v", p)
			}
		}()
		Logger(DefaultLoggingConfig())(handler).ServeHTTP(w, req)
	}()

	if !strings.Contains(buf.String(), "/download-merge - 499 7 ") {
		t.Errorf("Expected aborted request logged with 499, got %q", buf.String())
	}
}

func TestLoggerIncludesAnnotations(t *testing.T) {
	buf := captureLog(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Annotate(r.Context(), "enc", "18+140")
		Annotate(r.Context(), "session", "abc123")
		_, _ = w.Write([]byte("merged"))
	})

	req := httptest.NewRequest(http.MethodGet, "/download-merge?v=x", http.NoBody)
	req.Header.Set("User-Agent", "curl/8.0")
	Logger(DefaultLoggingConfig())(handler).ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), " enc=18+140;session=abc123 curl/8.0") {
		t.Errorf("Expected annotations before the user agent, got %q", buf.String())
	}
}

func TestLoggerWithoutAnnotations(t *testing.T) {
	buf := captureLog(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/version", http.NoBody)
	req.Header.Del("User-Agent")
	Logger(DefaultLoggingConfig())(handler).ServeHTTP(httptest.NewRecorder(), req)

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " /version - 204 0 ") {
		t.Errorf("Expected empty query logged as a dash, got %q", line)
	}
	if !strings.HasSuffix(line, " - - -") {
		t.Errorf("Expected no encoding, annotations or user agent, got %q", line)
	}
}

func TestAnnotateOutsideLogger(t *testing.T) {
	// Must not panic on a bare context.
	Annotate(httptest.NewRequest(http.MethodGet, "/", http.NoBody).Context(), "enc", "18")
}

func TestLogField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", "-"},
		{"line\nbreak", `"line break"`},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"del\x7f", "del"},
		{"tab\tkept", "\"tab\tkept\""},
		{`say "hi"`, `"say ""hi"""`},
		{"Mozilla/5.0 (X11)", `"Mozilla/5.0 (X11)"`},
	}

	for _, tt := range tests {
		if got := logField(tt.in); got != tt.want {
			t.Errorf("logField(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, remote: "1.2.3.4:5", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 10.0.0.9 "}, remote: "1.2.3.4:5", want: "10.0.0.9"},
		{name: "remote addr", remote: "1.2.3.4:5678", want: "1.2.3.4"},
		{name: "ipv6 remote addr", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "remote without port", remote: "unix", want: "unix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientAddr(req); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

// =============================================================================
// Compression
// =============================================================================

func TestCompressionMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		contentType       string
		disposition       string
		body              string
		acceptEncoding    string
		expectCompression bool
	}{
		{
			name:              "Compresses large JSON",
			contentType:       "application/json",
			body:              strings.Repeat(`{"itag":"137"},`, 200),
			acceptEncoding:    "gzip, deflate",
			expectCompression: true,
		},
		{
			name:              "Doesn't compress small responses",
			contentType:       "application/json",
			body:              `{"success":true}`,
			acceptEncoding:    "gzip",
			expectCompression: false,
		},
		{
			name:              "Doesn't compress media",
			contentType:       "video/mp4",
			body:              strings.Repeat("x", 4096),
			acceptEncoding:    "gzip",
			expectCompression: false,
		},
		{
			name:              "Doesn't compress attachments",
			contentType:       "text/plain",
			disposition:       `attachment; filename="a.txt"`,
			body:              strings.Repeat("x", 4096),
			acceptEncoding:    "gzip",
			expectCompression: false,
		},
		{
			name:              "Respects missing Accept-Encoding",
			contentType:       "application/json",
			body:              strings.Repeat("x", 4096),
			expectCompression: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				if tt.disposition != "" {
					w.Header().Set("Content-Disposition", tt.disposition)
				}
				_, _ = w.Write([]byte(tt.body))
			})

			req := httptest.NewRequest(http.MethodGet, "/info", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()

			Compression(DefaultCompressionConfig())(handler).ServeHTTP(w, req)

			isCompressed := w.Header().Get("Content-Encoding") == "gzip"
			if isCompressed != tt.expectCompression {
				t.Fatalf("Expected compression=%v, got compression=%v", tt.expectCompression, isCompressed)
			}

			body := w.Body.Bytes()
			if isCompressed {
				gr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatalf("Failed to create gzip reader: %v", err)
				}
				body, err = io.ReadAll(gr)
				if err != nil {
					t.Fatalf("Failed to decompress: %v", err)
				}
			}
			if string(body) != tt.body {
				t.Error("Body doesn't match original")
			}
		})
	}
}

func TestCompressionPassesMediaThroughUnbuffered(t *testing.T) {
	rec := httptest.NewRecorder()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		_, _ = w.Write([]byte("chunk"))

		// The first chunk must already be on the wire.
		if rec.Body.String() != "chunk" {
			t.Errorf("Expected first chunk written immediately, got %q", rec.Body.String())
		}
		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("Flush failed: %v", err)
		}
		if uw, ok := w.(interface{ Unwrap() http.ResponseWriter }); !ok || uw.Unwrap() == nil {
			t.Error("Expected pass-through writer to unwrap")
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/download-merge", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	Compression(DefaultCompressionConfig())(handler).ServeHTTP(rec, req)

	if !rec.Flushed {
		t.Error("Expected flush to reach the recorder")
	}
}

func TestCompressionErrorBeforeBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Video Not Found", http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/download-video", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()

	Compression(DefaultCompressionConfig())(handler).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "Video Not Found" {
		t.Errorf("Expected plain-text body, got %q", w.Body.String())
	}
}

// =============================================================================
// Metrics
// =============================================================================

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	for _, want := range []string{"/metrics", "/healthz", "/readyz"} {
		found := false
		for _, p := range config.SkipPaths {
			if p == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s in SkipPaths", want)
		}
	}
	if config.PathPrefix != "/api/videos" {
		t.Errorf("Expected PathPrefix /api/videos, got %q", config.PathPrefix)
	}
}

func TestNormalizePath(t *testing.T) {
	known := map[string]bool{"/": true, "/info": true, "/download-merge": true}

	tests := []struct {
		path     string
		expected string
	}{
		{"/info", "/info"},
		{"/api/videos/info", "/api/videos/info"},
		{"/api/videos/download-merge", "/api/videos/download-merge"},
		{"/api/videos", "/api/videos"},
		{"/", "/"},
		{"/assets/app.3f2a.js", "other"},
		{"/api/videos/unknown", "other"},
		{"/wp-login.php", "other"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path, "/api/videos", known); got != tt.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.expected)
		}
	}
}

func TestMetricsMiddlewareStatusCode(t *testing.T) {
	mw := Metrics(DefaultMetricsConfig())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Video Not Found", http.StatusNotFound)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/info", "404")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/info", http.NoBody))

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("Expected %v requests recorded, got %v", before+1, got)
	}
}

func TestMetricsMiddlewareAborted(t *testing.T) {
	mw := Metrics(DefaultMetricsConfig())

	handler := mw(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/download", "aborted")
	before := testutil.ToFloat64(counter)

	func() {
		defer func() {
			if p := recover(); p != http.ErrAbortHandler {
				t.Errorf("Expected ErrAbortHandler, got %v", p)
			}
		}()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/download", http.NoBody))
	}()

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("Expected aborted request recorded, got %v", got-before)
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	mw := Metrics(DefaultMetricsConfig())
	called := false

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "other", "200")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	if !called {
		t.Error("Expected handler to be called")
	}
	if got := testutil.ToFloat64(counter); got != before {
		t.Error("Expected skipped path not to be recorded")
	}
}
