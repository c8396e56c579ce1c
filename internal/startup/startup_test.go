package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue string
		want         string
	}{
		{name: "Returns default when env var not set", defaultValue: "default", want: "default"},
		{name: "Returns env value when set", envValue: "custom", defaultValue: "default", want: "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VIDMERGE_TEST_VAR", tt.envValue)

			if got := getEnv("VIDMERGE_TEST_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "Returns default when env var not set", defaultValue: true, want: true},
		{name: "Returns true when env var is 'true'", envValue: "true", want: true},
		{name: "Returns false when env var is '0'", envValue: "0", defaultValue: true, want: false},
		{name: "Returns default on invalid value", envValue: "maybe", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VIDMERGE_TEST_BOOL", tt.envValue)

			if got := getEnvBool("VIDMERGE_TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		envValue string
		want     int
	}{
		{envValue: "", want: 2},
		{envValue: "7", want: 7},
		{envValue: "-1", want: -1},
		{envValue: "seven", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("VIDMERGE_TEST_INT", tt.envValue)

			if got := getEnvInt("VIDMERGE_TEST_INT", 2); got != tt.want {
				t.Errorf("getEnvInt(%q) = %d, want %d", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		envValue string
		want     time.Duration
	}{
		{envValue: "", want: 5 * time.Second},
		{envValue: "250ms", want: 250 * time.Millisecond},
		{envValue: "2m", want: 2 * time.Minute},
		{envValue: "soon", want: 5 * time.Second},
		{envValue: "-3s", want: 5 * time.Second},
		{envValue: "0s", want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("VIDMERGE_TEST_DURATION", tt.envValue)

			if got := getEnvDuration("VIDMERGE_TEST_DURATION", 5*time.Second); got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	if got := redact(""); got != "(not set)" {
		t.Errorf("Expected (not set), got %q", got)
	}
	if got := redact("SID=secret"); got != "(set, 10 bytes)" {
		t.Errorf("Expected (set, 10 bytes), got %q", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{
		"PORT", "METRICS_PORT", "METRICS_ENABLED", "STATIC_DIR", "YOUTUBE_COOKIE",
		"FFMPEG_PATH", "MUX_KILL_GRACE", "MUX_MAX_SESSIONS", "MUX_ADMIT_TIMEOUT",
		"STREAM_IDLE_TIMEOUT", "WRITE_TIMEOUT", "EXTRACTOR_TIMEOUT", "EXTRACTOR_RETRIES",
	} {
		t.Setenv(key, "")
	}

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != "8000" {
		t.Errorf("Expected Port=8000, got %s", config.Port)
	}
	if config.FFmpegPath != "ffmpeg" {
		t.Errorf("Expected FFmpegPath=ffmpeg, got %s", config.FFmpegPath)
	}
	if config.MuxKillGrace != 5*time.Second {
		t.Errorf("Expected MuxKillGrace=5s, got %v", config.MuxKillGrace)
	}
	if config.MuxMaxSessions < 1 {
		t.Errorf("Expected at least one mux session, got %d", config.MuxMaxSessions)
	}
	if config.ExtractorRetries != 2 {
		t.Errorf("Expected ExtractorRetries=2, got %d", config.ExtractorRetries)
	}
	if !filepath.IsAbs(config.StaticDir) {
		t.Errorf("Expected absolute StaticDir, got %s", config.StaticDir)
	}
	if config.Cookie != "" {
		t.Errorf("Expected empty cookie, got %q", config.Cookie)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	env := "YOUTUBE_COOKIE=\"SID=abc; HSID=def\"\nMUX_MAX_SESSIONS=3\nEXTRACTOR_RETRIES=-4\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	// godotenv never overrides variables that are already set, so the
	// keys are cleared and restored by hand.
	for _, key := range []string{"YOUTUBE_COOKIE", "MUX_MAX_SESSIONS", "EXTRACTOR_RETRIES"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Cookie != "SID=abc; HSID=def" {
		t.Errorf("Expected cookie from .env, got %q", config.Cookie)
	}
	if config.MuxMaxSessions != 3 {
		t.Errorf("Expected MuxMaxSessions=3, got %d", config.MuxMaxSessions)
	}
	if config.ExtractorRetries != 0 {
		t.Errorf("Expected negative retries clamped to 0, got %d", config.ExtractorRetries)
	}
}

func TestCheckFFmpegMissing(t *testing.T) {
	if err := checkFFmpeg("/nonexistent/ffmpeg"); err == nil {
		t.Error("Expected error for missing binary")
	}
	if LogMuxInit("/nonexistent/ffmpeg", 1, time.Second) {
		t.Error("Expected LogMuxInit to report ffmpeg unavailable")
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/info", ""},
		{"/api/videos/info", "api/videos"},
		{"/api/videos", "api/videos"},
		{"/static/app.js", "static"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	router := mux.NewRouter()
	router.HandleFunc("/info", noop).Methods(http.MethodGet).Name("info")
	api := router.PathPrefix("/api/videos").Subrouter()
	api.HandleFunc("/info", noop).Methods(http.MethodGet, http.MethodHead)
	router.PathPrefix("/").Handler(noop)

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}

	found := make(map[string]bool)
	for _, r := range routes {
		found[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{"GET /info", "GET /api/videos/info", "HEAD /api/videos/info", "* /"} {
		if !found[want] {
			t.Errorf("Expected route %q in %v", want, routes)
		}
	}
}

// chdir changes the working directory for the duration of the test,
// matching testing.T.Chdir from newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
