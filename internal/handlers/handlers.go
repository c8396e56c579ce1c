package handlers

import (
	"context"
	"time"

	"vidmerge/internal/logging"
	"vidmerge/internal/media"
	"vidmerge/internal/remux"
	"vidmerge/internal/source"
	"vidmerge/internal/stream"
	"vidmerge/internal/streaming"
)

var log = logging.Named("http")

// CatalogResolver turns a link into the catalog served by /info.
type CatalogResolver interface {
	Resolve(ctx context.Context, raw string) (*media.Catalog, error)
}

// StreamOpener opens network-backed elementary streams.
type StreamOpener interface {
	Open(ctx context.Context, raw string, sel media.Selector, kind media.Kind) (*source.Stream, error)
	OpenPair(ctx context.Context, raw string, audioSel, videoSel media.Selector) (audio, video *source.Stream, err error)
}

// Multiplexer combines an audio and a video stream into one container.
type Multiplexer interface {
	Mux(ctx context.Context, audio, video stream.Handle, format remux.Format) (*remux.Session, error)
	Available() error
	Active() int
}

// ThumbnailFetcher downloads and resizes preview images.
type ThumbnailFetcher interface {
	Fetch(ctx context.Context, url string, width int) ([]byte, error)
}

// PressureSignal reports whether new merges should be refused.
type PressureSignal interface {
	IsPaused() bool
}

// Handlers serves the video API.
type Handlers struct {
	resolver  CatalogResolver
	source    StreamOpener
	muxer     Multiplexer
	thumbs    ThumbnailFetcher
	pressure  PressureSignal
	transfer  streaming.TimeoutWriterConfig
	startTime time.Time
}

// Config holds the collaborators and transfer settings.
type Config struct {
	Resolver   CatalogResolver
	Source     StreamOpener
	Muxer      Multiplexer
	Thumbnails ThumbnailFetcher
	// Pressure is optional; when set, merges are refused while it reports paused.
	Pressure PressureSignal
	// Transfer bounds each response write and the idle time between writes.
	Transfer streaming.TimeoutWriterConfig
}

func New(config Config) *Handlers {
	transfer := config.Transfer
	defaults := streaming.DefaultTimeoutWriterConfig()
	if transfer.WriteTimeout <= 0 {
		transfer.WriteTimeout = defaults.WriteTimeout
	}
	if transfer.IdleTimeout <= 0 {
		transfer.IdleTimeout = defaults.IdleTimeout
	}
	if transfer.ChunkSize <= 0 {
		transfer.ChunkSize = defaults.ChunkSize
	}

	return &Handlers{
		resolver:  config.Resolver,
		source:    config.Source,
		muxer:     config.Muxer,
		thumbs:    config.Thumbnails,
		pressure:  config.Pressure,
		transfer:  transfer,
		startTime: time.Now(),
	}
}
