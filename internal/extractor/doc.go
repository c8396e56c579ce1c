// Package extractor adapts the github.com/kkdai/youtube/v2 extraction
// library to the pipeline.
//
// It owns everything that touches the library directly:
//   - the HTTP client and cookie jar built from the YOUTUBE_COOKIE bundle
//   - the link predicate run before any network call
//   - metadata lookups with retry on transient failures
//   - classification of library errors into the media error taxonomy
//
// The configuration is an explicit value passed to constructors, never
// global state, so tests can run with a fake Client and no cookies.
package extractor
