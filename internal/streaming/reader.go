package streaming

import (
	"io"
	"sync"
	"time"
)

// IdleReader guards a network body against stalls. A Read that stays
// blocked longer than the timeout closes the underlying reader, which
// unblocks it, and the Read then fails with ErrStalled.
type IdleReader struct {
	r       io.ReadCloser
	timeout time.Duration

	mu      sync.Mutex
	pending time.Time // start of the in-flight Read, zero when idle
	stalled bool

	closeOnce sync.Once
	closeErr  error
	stop      chan struct{}
}

// NewIdleReader wraps r. A timeout of zero or less disables the watchdog.
func NewIdleReader(r io.ReadCloser, timeout time.Duration) *IdleReader {
	ir := &IdleReader{
		r:       r,
		timeout: timeout,
		stop:    make(chan struct{}),
	}

	if timeout > 0 {
		go ir.watch()
	}

	return ir
}

// Read implements io.Reader
func (ir *IdleReader) Read(p []byte) (int, error) {
	ir.mu.Lock()
	if ir.stalled {
		ir.mu.Unlock()
		return 0, ErrStalled
	}
	ir.pending = time.Now()
	ir.mu.Unlock()

	n, err := ir.r.Read(p)

	ir.mu.Lock()
	ir.pending = time.Time{}
	stalled := ir.stalled
	ir.mu.Unlock()

	if stalled && err != nil && err != io.EOF {
		return n, ErrStalled
	}
	return n, err
}

// Close stops the watchdog and closes the underlying reader. It is safe
// to call more than once and concurrently with Read.
func (ir *IdleReader) Close() error {
	ir.closeOnce.Do(func() {
		close(ir.stop)
		ir.closeErr = ir.r.Close()
	})
	return ir.closeErr
}

func (ir *IdleReader) watch() {
	interval := ir.timeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ir.mu.Lock()
			blocked := !ir.pending.IsZero() && time.Since(ir.pending) > ir.timeout
			if blocked {
				ir.stalled = true
			}
			ir.mu.Unlock()

			if blocked {
				_ = ir.Close()
				return
			}

		case <-ir.stop:
			return
		}
	}
}
