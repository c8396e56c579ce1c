package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"
	"golang.org/x/sync/errgroup"

	"vidmerge/internal/catalog"
	"vidmerge/internal/extractor"
	"vidmerge/internal/logging"
	"vidmerge/internal/media"
	"vidmerge/internal/stream"
	"vidmerge/internal/streaming"
)

var log = logging.Named("source")

// Observer records stream metrics. The metrics package implements it.
type Observer interface {
	ObserveStreamOpened(kind string)
	ObserveStreamBytes(kind string, n int)
	ObserveStreamOutcome(kind, state string)
}

// Source opens network-backed streams for catalog encodings.
type Source struct {
	resolver *catalog.Resolver
	client   extractor.Client
	idle     time.Duration
	observer Observer
}

// New creates a Source. idleTimeout bounds how long a single Read may
// block without progress; zero disables the watchdog.
func New(resolver *catalog.Resolver, client extractor.Client, idleTimeout time.Duration, observer Observer) *Source {
	return &Source{
		resolver: resolver,
		client:   client,
		idle:     idleTimeout,
		observer: observer,
	}
}

// Open resolves raw, selects one encoding of kind and opens it. The
// caller owns the returned stream and must Close it.
func (s *Source) Open(ctx context.Context, raw string, sel media.Selector, kind media.Kind) (*Stream, error) {
	listing, err := s.resolver.Lookup(ctx, raw)
	if err != nil {
		return nil, err
	}

	enc, format, err := listing.Select(sel, kind)
	if err != nil {
		return nil, err
	}

	return s.open(ctx, listing, enc, format)
}

// OpenPair performs a single lookup and opens an audio and a video stream
// concurrently. If either open fails the other stream is closed and no
// stream is returned.
func (s *Source) OpenPair(ctx context.Context, raw string, audioSel, videoSel media.Selector) (audio, video *Stream, err error) {
	listing, err := s.resolver.Lookup(ctx, raw)
	if err != nil {
		return nil, nil, err
	}

	audioEnc, audioFormat, err := listing.Select(audioSel, media.KindAudio)
	if err != nil {
		return nil, nil, err
	}
	videoEnc, videoFormat, err := listing.Select(videoSel, media.KindVideo)
	if err != nil {
		return nil, nil, err
	}

	// Streams outlive the group, so they get ctx rather than a group context.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		audio, err = s.open(ctx, listing, audioEnc, audioFormat)
		return err
	})
	g.Go(func() error {
		var err error
		video, err = s.open(ctx, listing, videoEnc, videoFormat)
		return err
	})

	if err := g.Wait(); err != nil {
		if audio != nil {
			_ = audio.Close()
		}
		if video != nil {
			_ = video.Close()
		}
		return nil, nil, err
	}

	return audio, video, nil
}

func (s *Source) open(ctx context.Context, listing *catalog.Listing, enc media.Encoding, format *youtube.Format) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	body, size, err := s.client.GetStreamContext(streamCtx, listing.Video, format)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open %s encoding %s: %w", enc.Kind, enc.ID, extractor.Classify(err))
	}

	if size <= 0 {
		size = format.ContentLength
	}
	if size <= 0 {
		size = -1
	}

	st := &Stream{
		meta: Meta{
			Title:    listing.Catalog.Title,
			Encoding: enc,
			Size:     size,
		},
		body:     streaming.NewIdleReader(body, s.idle),
		cancel:   cancel,
		life:     stream.NewLifecycle(),
		log:      log.With(string(enc.Kind) + ":" + enc.ID),
		observer: s.observer,
	}
	st.life.Start()

	if s.observer != nil {
		s.observer.ObserveStreamOpened(string(enc.Kind))
	}
	st.log.Debug("Opened %s (%s, %d bytes)", listing.Link, enc.MimeType, size)

	return st, nil
}

// Meta describes an open stream.
type Meta struct {
	Title    string
	Encoding media.Encoding
	// Size is the content length in bytes, or -1 when unknown.
	Size int64
}

// Stream is one network-backed elementary stream. It implements
// stream.Handle. Read and Close may be called from different goroutines.
type Stream struct {
	meta     Meta
	body     *streaming.IdleReader
	cancel   context.CancelFunc
	life     *stream.Lifecycle
	log      logging.Logger
	observer Observer

	releaseOnce sync.Once
}

var _ stream.Handle = (*Stream)(nil)

// errClosed is returned by Read once the consumer has closed the stream.
var errClosed = fmt.Errorf("%w: stream closed", media.ErrClientAbort)

// Meta returns the stream description.
func (st *Stream) Meta() Meta {
	return st.meta
}

// Read returns bytes as they arrive from the network. A clean end of
// stream is io.EOF; anything else that ends the transfer is an error
// wrapping media.ErrStreamFailure.
func (st *Stream) Read(p []byte) (int, error) {
	switch o := st.life.Outcome(); o.State {
	case stream.Completed:
		return 0, io.EOF
	case stream.Failed:
		return 0, o.Err
	case stream.Aborted:
		return 0, errClosed
	}

	n, err := st.body.Read(p)
	if n > 0 && st.observer != nil {
		st.observer.ObserveStreamBytes(string(st.meta.Encoding.Kind), n)
	}

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		st.settle(stream.Completed, nil)
		return n, io.EOF
	}

	failure := fmt.Errorf("%w: %s encoding %s: %w", media.ErrStreamFailure, st.meta.Encoding.Kind, st.meta.Encoding.ID, err)
	if !st.settle(stream.Failed, failure) {
		// Close won the race and tore the body down under this Read.
		if st.life.State() == stream.Aborted {
			return n, errClosed
		}
		return n, st.life.Err()
	}
	st.log.Warn("Stream failed: %v", err)
	return n, failure
}

// Close releases the network connection. Closing before the end of
// stream records Aborted; closing a finished stream is a no-op.
func (st *Stream) Close() error {
	st.settle(stream.Aborted, nil)
	return nil
}

// Done is closed once the connection has been released.
func (st *Stream) Done() <-chan struct{} {
	return st.life.Done()
}

// Outcome returns the terminal outcome, or Running while open.
func (st *Stream) Outcome() stream.Outcome {
	return st.life.Outcome()
}

func (st *Stream) settle(state stream.State, err error) bool {
	won := st.life.Settle(state, err)
	if won {
		if st.observer != nil {
			st.observer.ObserveStreamOutcome(string(st.meta.Encoding.Kind), state.String())
		}
	} else if state != stream.Aborted {
		st.log.Debug("Ignoring %s outcome, already %s", state, st.life.State())
	}

	st.release()
	return won
}

// release closes the body and cancels the request context, then marks
// the handle done.
func (st *Stream) release() {
	st.releaseOnce.Do(func() {
		if err := st.body.Close(); err != nil {
			st.log.Debug("Error closing body: %v", err)
		}
		st.cancel()
		st.life.Finish()
	})
}
