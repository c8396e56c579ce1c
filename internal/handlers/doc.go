// Package handlers provides the HTTP request handlers for the video API.
//
// Every route takes the source link in the v query parameter:
//
//	GET /info              catalog of audio-only and video-only encodings
//	GET /download-video    one video encoding (videoItag)
//	GET /download-audio    one audio encoding (audioItag)
//	GET /download-merge    audio and video muxed by ffmpeg (videoItag, audioItag)
//	GET /download          the best audio and video muxed
//	GET /thumbnail         the largest preview as JPEG (width)
//
// A missing itag selects the highest encoding of its kind; the legacy
// videoQuality and audioQuality parameters accept the highestvideo,
// lowestvideo, highestaudio and lowestaudio policies.
//
// Errors are mapped before the first body byte: invalid links are 400,
// unknown links and encodings are 404, a saturated multiplexer or memory
// pressure is 503 with Retry-After and anything else is 500. Once bytes
// have been sent a failure aborts the connection so the client never
// mistakes a truncated file for a complete one. Every handle a handler opens is
// closed and waited on before the handler returns.
//
// Health checks (HealthCheck, LivenessCheck, ReadinessCheck), build
// information (GetVersion) and the Prometheus endpoint (MetricsHandler)
// are served alongside.
package handlers
