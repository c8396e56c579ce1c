/*
Package workers sizes concurrency limits in containerized environments.

# Overview

When running in a container the number of usable CPUs may be limited by
cgroup constraints. Go 1.19+ sets GOMAXPROCS from that limit, while
runtime.NumCPU() still returns the host's CPU count:

	// Wrong: Returns 64 (host CPUs), ignores container limit
	n := runtime.NumCPU()

	// Correct: Returns 2 (respects container limit in Go 1.19+)
	n := runtime.GOMAXPROCS(0)

# Usage

	// Concurrent ffmpeg sessions
	n := workers.MuxSessions()

Count takes an environment variable name for an operator override:

	n := workers.Count("MY_POOL_SIZE", 2.0, 24)

# Environment Variable Override

MuxSessions honours MUX_MAX_SESSIONS. The override is still capped by
MaxMuxSessions; unparsable or non-positive values fall back to the
computed count.

	env:
	- name: MUX_MAX_SESSIONS
	  value: "4"

# Thread Safety

All functions are safe for concurrent use.
*/
package workers
