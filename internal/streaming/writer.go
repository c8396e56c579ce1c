package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"vidmerge/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write operation exceeded the configured timeout.
	// This typically occurs when a client is receiving data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	// This is detected via the request context or a failed write.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the stream was canceled programmatically,
	// either by calling Close() on the TimeoutWriter or via the idle timeout.
	ErrStreamCanceled = errors.New("stream canceled")

	// ErrStalled indicates that a read made no progress within the idle timeout.
	ErrStalled = errors.New("read stalled")
)

// ReadError wraps a failure of the source side of a relay, as opposed to
// a failure writing to the client.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return "source read: " + e.Err.Error()
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout is the maximum time to wait for a single write operation
	WriteTimeout time.Duration
	// IdleTimeout is the maximum time between successful writes
	IdleTimeout time.Duration
	// ChunkSize is the size of chunks to write (0 = write as received)
	ChunkSize int
	// OnProgress is called roughly every megabyte with bytes written
	OnProgress func(bytesWritten int64, duration time.Duration)
}

// DefaultTimeoutWriterConfig returns sensible defaults
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    64 * 1024, // 64KB chunks
	}
}

// TimeoutWriter wraps an http.ResponseWriter with timeout protection.
// Each chunk is written under a connection write deadline, so a stuck
// client surfaces as ErrWriteTimeout instead of a goroutine blocked forever.
type TimeoutWriter struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	ctx          context.Context
	cancel       context.CancelFunc
	config       TimeoutWriterConfig
	startTime    time.Time
	lastWrite    time.Time
	bytesWritten int64
	mu           sync.Mutex
	closed       bool
	idle         bool
	deadlines    bool
}

// NewTimeoutWriter creates a new timeout-protected writer
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	writerCtx, cancel := context.WithCancel(ctx)

	tw := &TimeoutWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
		lastWrite: time.Now(),
		deadlines: true,
	}

	// Start idle timeout checker
	go tw.idleChecker()

	return tw
}

// Write implements io.Writer with timeout protection
func (tw *TimeoutWriter) Write(p []byte) (n int, err error) {
	tw.mu.Lock()
	if tw.closed {
		tw.mu.Unlock()
		return 0, ErrStreamCanceled
	}
	tw.mu.Unlock()

	total := 0
	for len(p) > 0 {
		// Check context between chunks
		select {
		case <-tw.ctx.Done():
			return total, tw.contextError()
		default:
		}

		size := len(p)
		if tw.config.ChunkSize > 0 && size > tw.config.ChunkSize {
			size = tw.config.ChunkSize
		}

		n, err := tw.writeChunk(p[:size])
		total += n
		if err != nil {
			return total, err
		}
		p = p[size:]
	}

	return total, nil
}

// writeChunk performs a single write under the write deadline and
// flushes it to the client.
func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	if tw.deadlines && tw.config.WriteTimeout > 0 {
		if err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout)); err != nil {
			// Recorders and some wrappers cannot set deadlines
			tw.deadlines = false
		}
	}

	n, err := tw.w.Write(p)
	if err == nil {
		err = tw.rc.Flush()
		if errors.Is(err, http.ErrNotSupported) {
			err = nil
		}
	}

	if err != nil {
		tw.cancel()
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, ErrWriteTimeout
		}
		return n, fmt.Errorf("%w: %w", ErrClientGone, err)
	}

	tw.mu.Lock()
	before := tw.bytesWritten
	tw.lastWrite = time.Now()
	tw.bytesWritten += int64(n)
	bytesWritten := tw.bytesWritten
	tw.mu.Unlock()

	// Call progress callback each time another megabyte boundary is crossed
	if tw.config.OnProgress != nil && bytesWritten/(1024*1024) != before/(1024*1024) {
		tw.config.OnProgress(bytesWritten, time.Since(tw.startTime))
	}

	return n, nil
}

// idleChecker monitors for idle connections
func (tw *TimeoutWriter) idleChecker() {
	if tw.config.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(tw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			closed := tw.closed
			tw.mu.Unlock()

			if closed {
				return
			}

			if idle > tw.config.IdleTimeout {
				logging.Warn("Stream idle timeout exceeded: %v", idle)
				tw.mu.Lock()
				tw.idle = true
				tw.mu.Unlock()
				tw.cancel()
				return
			}

		case <-tw.ctx.Done():
			return
		}
	}
}

// Done is closed when the writer is canceled: by Close, the idle timeout,
// a failed write or the parent context.
func (tw *TimeoutWriter) Done() <-chan struct{} {
	return tw.ctx.Done()
}

// contextError returns an appropriate error based on context state
func (tw *TimeoutWriter) contextError() error {
	tw.mu.Lock()
	closed, idle := tw.closed, tw.idle
	tw.mu.Unlock()

	if closed || idle {
		return ErrStreamCanceled
	}
	return ErrClientGone
}

// Close marks the writer as closed
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}

	tw.closed = true
	tw.cancel()

	return nil
}

// Stats returns streaming statistics
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.startTime)
}

// StreamWithTimeout streams from a reader to an HTTP response with timeout
// protection. Headers are committed by the first successful read, so a
// source that fails immediately leaves the response untouched and the
// caller can still send an error status. Source failures are returned as
// *ReadError; client-side failures wrap ErrClientGone or ErrWriteTimeout.
//
// When the writer is canceled (client gone, idle timeout) src is closed
// if it implements io.Closer, which unblocks a pending Read.
func StreamWithTimeout(ctx context.Context, w http.ResponseWriter, src io.Reader, config TimeoutWriterConfig) (int64, error) {
	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	if closer, ok := src.(io.Closer); ok {
		stop := context.AfterFunc(tw.ctx, func() {
			_ = closer.Close()
		})
		defer stop()
	}

	// Set headers for streaming
	if w.Header().Get("Content-Length") == "" {
		w.Header().Set("Transfer-Encoding", "chunked")
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")

	size := config.ChunkSize
	if size <= 0 {
		size = 32 * 1024
	}
	buf := make([]byte, size)

	var err error
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := tw.Write(buf[:n]); werr != nil {
				err = werr
				break
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			// A read aborted by our own cancellation is a client-side failure.
			if tw.ctx.Err() != nil {
				err = tw.contextError()
			} else {
				err = &ReadError{Err: rerr}
			}
			break
		}
	}

	bytesWritten, duration := tw.Stats()
	logging.Debug("Stream finished: %d bytes in %v", bytesWritten, duration)

	return bytesWritten, err
}
