// Package memory sizes the Go heap for a container and signals memory
// pressure to the merge endpoint.
//
// # Configuration
//
// Go detects cgroup CPU limits on its own but not memory limits. Call
// [ConfigureFromEnv] early in main to derive GOMEMLIMIT from the
// container limit:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ...
//	}
//
// The following environment variables are read:
//
//   - GOMEMLIMIT: Standard Go variable. Takes precedence when set.
//   - MEMORY_LIMIT: Container memory limit in bytes, usually passed with
//     the Kubernetes Downward API.
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap, between 0.0
//     and 1.0. Default is 0.6 because every merge runs an ffmpeg child
//     that is charged to the same container.
//
// A Downward API example:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// # Backpressure
//
// A [Monitor] samples heap usage against the limit. Once usage crosses
// the critical mark it reports paused until usage falls below the high
// mark, and the merge handler answers 503 with Retry-After meanwhile.
// Single-leg downloads are not affected.
package memory
