package remux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"vidmerge/internal/logging"
	"vidmerge/internal/media"
	"vidmerge/internal/stream"
)

// errClosed is returned by Read once the consumer has closed the session.
var errClosed = fmt.Errorf("%w: session closed", media.ErrClientAbort)

// errInterrupted marks a leg stopped by teardown rather than by its source.
var errInterrupted = errors.New("leg interrupted")

// Session owns one ffmpeg process, its two input pipes, its output pipe
// and both input handles. It implements stream.Handle over the muxed
// output.
type Session struct {
	id     string
	format Format
	cmd    *exec.Cmd
	cancel context.CancelFunc

	audio, video   stream.Handle
	audioW, videoW *os.File
	out            *os.File
	stderr         *tailBuffer

	life     *stream.Lifecycle
	log      logging.Logger
	started  time.Time
	observer Observer
	release  func()

	torn     atomic.Bool
	bytesOut atomic.Int64

	exited  chan struct{} // process reaped and both legs finished
	outDone chan struct{} // output pipe closed
	outOnce sync.Once
}

var _ stream.Handle = (*Session)(nil)

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Format returns the output container.
func (s *Session) Format() Format {
	return s.format
}

// PID returns the process id of the running ffmpeg.
func (s *Session) PID() int {
	return s.cmd.Process.Pid
}

// Stderr returns the captured tail of ffmpeg's diagnostics.
func (s *Session) Stderr() string {
	return s.stderr.String()
}

// Read returns muxed output. At the end of the output it waits for the
// process to exit and reports io.EOF only for a clean run; otherwise the
// error wraps media.ErrStreamFailure and the cause.
func (s *Session) Read(p []byte) (int, error) {
	n, err := s.out.Read(p)
	if n > 0 {
		s.bytesOut.Add(int64(n))
	}
	if err == nil {
		return n, nil
	}

	<-s.exited
	s.closeOutput()

	switch o := s.life.Outcome(); o.State {
	case stream.Completed:
		return n, io.EOF
	case stream.Aborted:
		return n, errClosed
	default:
		return n, fmt.Errorf("%w: %w", media.ErrStreamFailure, o.Err)
	}
}

// Close aborts the session if it is still running and returns once the
// process has been reaped and every pipe is closed.
func (s *Session) Close() error {
	if s.life.Settle(stream.Aborted, nil) {
		s.log.Debug("Aborted by consumer")
		s.teardown()
	}
	s.closeOutput()
	<-s.life.Done()
	return nil
}

// Done is closed after full teardown.
func (s *Session) Done() <-chan struct{} {
	return s.life.Done()
}

// Outcome returns the terminal outcome, or Running while active.
func (s *Session) Outcome() stream.Outcome {
	return s.life.Outcome()
}

// run starts the leg pumps and the process waiter.
func (s *Session) run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		if s.life.Settle(stream.Aborted, fmt.Errorf("%w: %w", media.ErrClientAbort, ctx.Err())) {
			s.log.Debug("Aborted by canceled context")
			s.teardown()
			s.closeOutput()
		}
	})

	var legs errgroup.Group
	legs.Go(func() error { return s.pump("audio", s.audio, s.audioW) })
	legs.Go(func() error { return s.pump("video", s.video, s.videoW) })

	go func() {
		defer stop()

		waitErr := s.cmd.Wait()

		// The process is gone; anything still blocked on a source is
		// released so the legs can finish.
		s.torn.Store(true)
		_ = s.audio.Close()
		_ = s.video.Close()
		legErr := legs.Wait()
		s.cancel()

		s.settleExit(waitErr, legErr)
		close(s.exited)
		s.release()

		<-s.outDone

		o := s.life.Outcome()
		if s.observer != nil {
			s.observer.ObserveSessionFinished(s.format.Muxer, o.State.String(), time.Since(s.started).Seconds(), s.bytesOut.Load())
		}
		s.log.Debug("Finished: %s after %v, %d bytes out", o.State, time.Since(s.started).Round(time.Millisecond), s.bytesOut.Load())

		s.life.Finish()
	}()
}

// pump copies one input handle into its pipe. A source failure fails the
// session at once; a write failure means the process stopped reading and
// is left to the exit status.
func (s *Session) pump(name string, src stream.Handle, dst *os.File) error {
	defer func() {
		_ = dst.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%s pipe: %w", name, werr)
			}
		}

		switch {
		case rerr == nil:
			continue
		case errors.Is(rerr, io.EOF):
			return nil
		case s.torn.Load():
			return errInterrupted
		}

		// Fail before dst is closed so ffmpeg never sees a clean EOF on a
		// truncated input.
		s.fail(fmt.Errorf("%s leg: %w", name, rerr))
		return rerr
	}
}

// fail records a failure and tears the session down.
func (s *Session) fail(err error) {
	if !errors.Is(err, media.ErrStreamFailure) {
		err = fmt.Errorf("%w: %w", media.ErrStreamFailure, err)
	}

	if !s.life.Settle(stream.Failed, err) {
		s.log.Debug("Ignoring failure, already %s: %v", s.life.State(), err)
		return
	}

	s.log.Warn("Session failed: %v", err)
	s.teardown()
	s.closeOutput()
}

// settleExit derives the outcome from the exit status once the process
// and both legs are done. It is a no-op when a failure or abort already
// settled the session.
func (s *Session) settleExit(waitErr, legErr error) {
	switch {
	case waitErr == nil && legErr == nil:
		s.life.Settle(stream.Completed, nil)
		return
	case waitErr == nil:
		waitErr = fmt.Errorf("exited before consuming input: %w", legErr)
	}

	var err error
	if tail := s.stderr.String(); tail != "" {
		err = fmt.Errorf("%w: %w: %s", media.ErrMuxProcess, waitErr, tail)
	} else {
		err = fmt.Errorf("%w: %w", media.ErrMuxProcess, waitErr)
	}

	if s.life.Settle(stream.Failed, err) {
		s.log.Warn("Process failed: %v", err)
		s.closeOutput()
		return
	}
	s.log.Debug("Ignoring exit status, already %s: %v", s.life.State(), waitErr)
}

// teardown interrupts the process (killed after the grace period by
// exec.Cmd.WaitDelay) and closes both inputs.
func (s *Session) teardown() {
	s.torn.Store(true)
	s.cancel()
	_ = s.audio.Close()
	_ = s.video.Close()
}

func (s *Session) closeOutput() {
	s.outOnce.Do(func() {
		_ = s.out.Close()
		close(s.outDone)
	})
}
