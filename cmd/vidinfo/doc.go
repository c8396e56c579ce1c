// Command vidinfo inspects links the way the vidmerge server sees them.
//
// It supports the following operations:
//   - info: Resolve a link and list its audio-only and video-only encodings
//   - check: Report whether ffmpeg and a cookie bundle are configured
//
// Usage:
//
//	vidinfo <command> [link]
//
// Commands:
//
//	info <link>  Resolve the link with the same validation and catalog
//	             rules as the server. On a terminal the encodings are
//	             printed as tables; otherwise the catalog is written as
//	             JSON in the /info format.
//
//	check        Look up the ffmpeg binary and count the cookies in the
//	             bundle. Exits non-zero when ffmpeg is missing.
//
// Environment:
//
//	YOUTUBE_COOKIE - Cookie bundle in "a=1; b=2" form
//	FFMPEG_PATH    - Multiplexer binary (default: ffmpeg)
package main
