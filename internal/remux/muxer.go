package remux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"vidmerge/internal/logging"
	"vidmerge/internal/media"
	"vidmerge/internal/stream"
)

var log = logging.Named("mux")

var (
	// ErrBusy indicates no session slot became free within AdmitTimeout.
	ErrBusy = errors.New("mux capacity exhausted")
	// ErrShutdown indicates the muxer no longer accepts sessions.
	ErrShutdown = errors.New("muxer shut down")
)

// execCommand is replaced in tests.
var execCommand = exec.CommandContext

// Observer records session metrics. The metrics package implements it.
type Observer interface {
	ObserveSessionStarted(format string)
	ObserveSessionFinished(format, state string, durationSeconds float64, bytesOut int64)
	ObserveStartFailure(reason string)
}

// Muxer runs ffmpeg sessions that combine one audio and one video stream.
type Muxer struct {
	config   Config
	sem      *semaphore.Weighted
	observer Observer

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// New creates a Muxer. observer may be nil.
func New(config Config, observer Observer) *Muxer {
	if config.MaxSessions <= 0 {
		config.MaxSessions = 1
	}
	if config.AdmitTimeout <= 0 {
		config.AdmitTimeout = DefaultConfig().AdmitTimeout
	}
	if config.KillGrace <= 0 {
		config.KillGrace = DefaultConfig().KillGrace
	}

	return &Muxer{
		config:   config,
		sem:      semaphore.NewWeighted(int64(config.MaxSessions)),
		observer: observer,
		sessions: make(map[string]*Session),
	}
}

// Available reports whether the ffmpeg binary can be found.
func (m *Muxer) Available() error {
	_, err := exec.LookPath(m.config.FFmpegPath)
	return err
}

// Active returns the number of live sessions.
func (m *Muxer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Mux starts a session that stream-copies audio and video into format.
// It takes ownership of both handles: they are closed on every path,
// including when Mux itself returns an error.
//
// Cancelling ctx aborts the session as if the consumer had closed it.
func (m *Muxer) Mux(ctx context.Context, audio, video stream.Handle, format Format) (*Session, error) {
	closeInputs := func() {
		_ = audio.Close()
		_ = video.Close()
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		closeInputs()
		return nil, ErrShutdown
	}

	admitCtx, cancelAdmit := context.WithTimeout(ctx, m.config.AdmitTimeout)
	err := m.sem.Acquire(admitCtx, 1)
	cancelAdmit()
	if err != nil {
		closeInputs()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", media.ErrClientAbort, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %d sessions running", ErrBusy, m.config.MaxSessions)
	}

	s, err := m.start(ctx, audio, video, format)
	if err != nil {
		m.sem.Release(1)
		closeInputs()
		if m.observer != nil {
			m.observer.ObserveStartFailure("start")
		}
		return nil, err
	}

	return s, nil
}

// start wires the pipes and launches the process. On error every pipe end
// it created has been closed.
func (m *Muxer) start(ctx context.Context, audio, video stream.Handle, format Format) (*Session, error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	pipe := func() (*os.File, *os.File, error) {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, err
		}
		files = append(files, r, w)
		return r, w, nil
	}

	audioR, audioW, err := pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: audio pipe: %w", media.ErrMuxStart, err)
	}
	videoR, videoW, err := pipe()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: video pipe: %w", media.ErrMuxStart, err)
	}
	outR, outW, err := pipe()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: output pipe: %w", media.ErrMuxStart, err)
	}

	id := uuid.NewString()
	procCtx, cancel := context.WithCancel(context.Background())
	stderr := newTailBuffer(m.config.StderrLimit)

	cmd := execCommand(procCtx, m.config.FFmpegPath, Args(format)...)
	cmd.ExtraFiles = []*os.File{audioR, videoR}
	cmd.Stdout = outW
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = m.config.KillGrace

	if err := cmd.Start(); err != nil {
		cancel()
		closeAll()
		log.Error("Failed to start %s: %v", m.config.FFmpegPath, err)
		return nil, fmt.Errorf("%w: %w", media.ErrMuxStart, err)
	}

	// The child holds its own copies now.
	_ = audioR.Close()
	_ = videoR.Close()
	_ = outW.Close()

	s := &Session{
		id:       id,
		format:   format,
		cmd:      cmd,
		cancel:   cancel,
		audio:    audio,
		video:    video,
		audioW:   audioW,
		videoW:   videoW,
		out:      outR,
		stderr:   stderr,
		life:     stream.NewLifecycle(),
		log:      log.With(id[:8]),
		started:  time.Now(),
		exited:   make(chan struct{}),
		outDone:  make(chan struct{}),
		observer: m.observer,
	}
	s.life.Start()

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.release = func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		m.sem.Release(1)
	}

	if m.observer != nil {
		m.observer.ObserveSessionStarted(format.Muxer)
	}
	s.log.Debug("Started pid %d (%s)", s.PID(), format.Muxer)

	s.run(ctx)
	return s, nil
}

// Shutdown aborts every live session and waits for their teardown, or
// until ctx is done. New sessions are rejected afterwards.
func (m *Muxer) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	if len(live) == 0 {
		return nil
	}

	log.Info("Stopping %d mux session(s)", len(live))

	var wg sync.WaitGroup
	for _, s := range live {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			_ = s.Close()
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mux shutdown: %w", ctx.Err())
	}
}
