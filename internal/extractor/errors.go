package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/kkdai/youtube/v2"

	"vidmerge/internal/media"
)

// IsTransient reports whether a failed metadata query is worth retrying.
// Restricted or missing assets are final; network hiccups and upstream
// 5xx/429 responses are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if isRestricted(err) {
		return false
	}

	var status youtube.ErrUnexpectedStatusCode
	if errors.As(err, &status) {
		code := int(status)
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func isRestricted(err error) bool {
	if errors.Is(err, youtube.ErrLoginRequired) ||
		errors.Is(err, youtube.ErrVideoPrivate) ||
		errors.Is(err, youtube.ErrNotPlayableInEmbed) {
		return true
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	return errors.As(err, &statusErr)
}

// Classify maps an extraction error onto the pipeline taxonomy. A canceled
// context means the requester left; anything else means the asset cannot
// be reached.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", media.ErrClientAbort, err)
	}

	switch {
	case isRestricted(err):
		return fmt.Errorf("%w: restricted content (login/private/age): %w", media.ErrLinkNotFound, err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%w: malformed video id: %w", media.ErrLinkNotFound, err)
	}

	return fmt.Errorf("%w: %w", media.ErrLinkNotFound, err)
}
