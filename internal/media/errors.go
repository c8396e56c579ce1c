package media

import "errors"

// Sentinel errors shared by every stage of the pipeline. Callers wrap them
// with fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	// ErrInvalidLink indicates the input failed the link predicate. No
	// network call is made for such links.
	ErrInvalidLink = errors.New("invalid link")

	// ErrLinkNotFound indicates the extractor reported no accessible
	// metadata: private, deleted, geo-blocked or malformed assets.
	ErrLinkNotFound = errors.New("link not found")

	// ErrEncodingNotFound indicates a requested encoding id is absent from
	// the fresh catalog, or belongs to the other kind.
	ErrEncodingNotFound = errors.New("encoding not found")

	// ErrStreamFailure indicates a transfer broke after it started. It is
	// never used for a clean end of stream.
	ErrStreamFailure = errors.New("stream failure")

	// ErrMuxStart indicates the multiplexer process could not be launched.
	ErrMuxStart = errors.New("mux start failure")

	// ErrMuxProcess indicates the multiplexer exited non-zero or one of its
	// pipes reported an I/O error.
	ErrMuxProcess = errors.New("mux process failure")

	// ErrClientAbort indicates the consumer went away. It is a normal
	// cancellation path and is not logged as an error.
	ErrClientAbort = errors.New("client aborted")
)

// IsClientError reports whether err should be answered before any bytes
// are sent with a 4xx status.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidLink) ||
		errors.Is(err, ErrLinkNotFound) ||
		errors.Is(err, ErrEncodingNotFound)
}
