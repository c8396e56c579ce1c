/*
Package streaming provides timeout-protected relay utilities for HTTP
responses and stall detection for upstream bodies.

# Overview

Slow or disconnected clients can hold server resources indefinitely when a
large response is relayed, and stalled upstream connections can do the same
from the other side. This package bounds both ends:

  - TimeoutWriter wraps http.ResponseWriter. Every chunk is written under a
    connection write deadline and flushed, and an idle checker cancels the
    relay when no data has flowed for IdleTimeout.
  - IdleReader wraps an upstream body. A Read blocked for longer than its
    timeout closes the body and fails with ErrStalled.

# Basic Usage

	func (h *Handlers) relay(w http.ResponseWriter, r *http.Request, src io.ReadCloser) {
		config := streaming.DefaultTimeoutWriterConfig()
		written, err := streaming.StreamWithTimeout(r.Context(), w, src, config)

		var readErr *streaming.ReadError
		switch {
		case err == nil:
		case errors.As(err, &readErr) && written == 0:
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		case errors.Is(err, streaming.ErrClientGone):
			// Client disconnected, not a server error
		}
	}

StreamWithTimeout reads before it writes, so headers are only committed
once the source has produced its first bytes. A source that fails up front
leaves the response untouched.

# Error Handling

	var (
		ErrWriteTimeout   // a single write exceeded WriteTimeout
		ErrClientGone     // request context canceled or a write failed
		ErrStreamCanceled // Close() or the idle timeout stopped the stream
		ErrStalled        // an IdleReader saw no progress within its timeout
	)

Source-side failures are returned as *ReadError so callers can tell them
apart from client-side failures with errors.As.

# Thread Safety

TimeoutWriter expects a single writing goroutine; its statistics are safe
to read concurrently. IdleReader.Close may be called concurrently with Read
and is the supported way to abort a blocked Read.
*/
package streaming
