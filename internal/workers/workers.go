package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvMuxSessions overrides the computed mux session count.
const EnvMuxSessions = "MUX_MAX_SESSIONS"

// MaxMuxSessions caps the computed session count on large hosts.
const MaxMuxSessions = 16

// Count returns a pool size for a given task type. It respects container
// CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the result. Use 0 for no limit. When envKey
// names a set, positive integer variable its value wins, still capped by
// limit.
func Count(envKey string, multiplier float64, limit int) int {
	if envKey != "" {
		if override := os.Getenv(envKey); override != "" {
			if count, err := strconv.Atoi(override); err == nil && count > 0 {
				if limit > 0 && count > limit {
					return limit
				}
				return count
			}
		}
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	n := int(float64(available) * multiplier)

	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}

	return n
}

// MuxSessions returns the number of concurrent ffmpeg sessions: one per
// CPU, at most MaxMuxSessions, unless MUX_MAX_SESSIONS says otherwise.
// A stream copy is light on CPU but each session holds two upstream
// connections and a client, so the count stays at one per core.
func MuxSessions() int {
	return Count(EnvMuxSessions, 1.0, MaxMuxSessions)
}
