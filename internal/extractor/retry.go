package extractor

import (
	"context"
	"time"

	"github.com/kkdai/youtube/v2"

	"vidmerge/internal/logging"
	"vidmerge/internal/media"
)

var log = logging.Named("extractor")

// RetryConfig configures retry behavior for metadata queries
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for metadata retries
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// RetryObserver records retry metrics. The metrics package provides the
// implementation so that this package does not import it.
type RetryObserver interface {
	ObserveRetryAttempt(op string)
	ObserveRetrySuccess(op string)
	ObserveRetryFailure(op string)
	ObserveRetryDuration(op string, durationSeconds float64)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is skipped (safe for tests).
var defaultObserver RetryObserver

// SetObserver sets the package-level retry observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o RetryObserver) {
	defaultObserver = o
}

// Lookup performs one metadata query for link, retrying transient
// failures with capped exponential backoff. The returned error is already
// classified into the media taxonomy.
func Lookup(ctx context.Context, client Client, link media.Link, config RetryConfig) (*youtube.Video, error) {
	const op = "metadata"

	start := time.Now()
	backoff := config.InitialBackoff
	var lastErr error

	defer func() {
		if o := defaultObserver; o != nil {
			o.ObserveRetryDuration(op, time.Since(start).Seconds())
		}
	}()

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		video, err := client.GetVideoContext(ctx, link.String())
		if err == nil {
			if attempt > 0 {
				log.Info("Metadata lookup succeeded on retry %d for %s", attempt, link)
				if o := defaultObserver; o != nil {
					o.ObserveRetrySuccess(op)
				}
			}
			return video, nil
		}

		lastErr = err

		if !IsTransient(err) {
			return nil, Classify(err)
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			if o := defaultObserver; o != nil {
				o.ObserveRetryAttempt(op)
			}
			log.Debug("Transient lookup error for %s, retrying in %v (attempt %d/%d): %v",
				link, backoff, attempt+1, config.MaxRetries, err)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, Classify(ctx.Err())
			}

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	log.Warn("Metadata lookup failed after %d retries for %s: %v", config.MaxRetries, link, lastErr)
	if o := defaultObserver; o != nil {
		o.ObserveRetryFailure(op)
	}
	return nil, Classify(lastErr)
}
