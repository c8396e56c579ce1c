// Package stream holds the lifecycle shared by every byte-stream handle in
// the pipeline: network-backed source streams and mux session outputs.
package stream

import (
	"io"
	"sync"
)

// State is the position of a handle in Created → Running → terminal.
type State int

const (
	Created State = iota
	Running
	Completed
	Failed
	Aborted
)

// Terminal reports whether s is one of the three end states.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Aborted
}

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal signal of a handle.
type Outcome struct {
	State State
	Err   error
}

// Handle is a live, ordered byte sequence owned by one request.
//
// Close releases the underlying resources; if the handle has not reached a
// terminal state it is recorded as Aborted. Done is closed once every
// resource has been released, after which Outcome is final.
type Handle interface {
	io.ReadCloser
	Done() <-chan struct{}
	Outcome() Outcome
}

// Lifecycle tracks one handle's state. The first call to Settle wins; later
// outcomes are rejected so that a session reports exactly one result.
type Lifecycle struct {
	mu    sync.Mutex
	state State
	err   error

	done     chan struct{}
	doneOnce sync.Once
}

// NewLifecycle returns a lifecycle in the Created state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		done: make(chan struct{}),
	}
}

// Start moves Created to Running. It is a no-op in any other state.
func (l *Lifecycle) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Created {
		l.state = Running
	}
}

// Settle records the terminal outcome. It returns false when an outcome
// was already recorded; the caller is expected to log the rejected one.
func (l *Lifecycle) Settle(state State, err error) bool {
	if !state.Terminal() {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Terminal() {
		return false
	}
	l.state = state
	l.err = err
	return true
}

// Finish marks every owned resource as released and closes Done. A handle
// that finishes without an outcome is recorded as Aborted.
func (l *Lifecycle) Finish() {
	l.doneOnce.Do(func() {
		l.Settle(Aborted, nil)
		close(l.done)
	})
}

// Done is closed after Finish.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Outcome returns the recorded outcome. Before Settle it reports the
// current non-terminal state with a nil error.
func (l *Lifecycle) Outcome() Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Outcome{State: l.state, Err: l.err}
}

// Err returns the recorded terminal error, if any.
func (l *Lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
