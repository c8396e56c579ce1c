package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vidmerge/internal/logging"
	"vidmerge/internal/media"
	"vidmerge/internal/remux"
	"vidmerge/internal/thumbnail"
)

// retryAfterSeconds is advertised when the multiplexer is saturated.
const retryAfterSeconds = "5"

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes a JSON body with the given status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// statusFor maps a pipeline error onto an HTTP status and a short plain
// text body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, media.ErrInvalidLink):
		return http.StatusBadRequest, "Invalid URL"
	case errors.Is(err, media.ErrLinkNotFound), errors.Is(err, media.ErrEncodingNotFound):
		return http.StatusNotFound, "Video Not Found"
	case errors.Is(err, remux.ErrBusy), errors.Is(err, remux.ErrShutdown):
		return http.StatusServiceUnavailable, "Service Unavailable"
	case errors.Is(err, thumbnail.ErrUpstream), errors.Is(err, thumbnail.ErrDecode):
		return http.StatusBadGateway, "Thumbnail Unavailable"
	default:
		return http.StatusInternalServerError, "Download failed"
	}
}

// writeError answers a request that failed before any body byte was
// sent. Requests abandoned by the client get no response at all.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if abandoned(err) {
		log.Debug("%s %s abandoned by client: %v", r.Method, r.URL.Path, err)
		return
	}

	status, body := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		log.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
	case status == http.StatusServiceUnavailable:
		log.Warn("%s %s rejected: %v", r.Method, r.URL.Path, err)
		w.Header().Set("Retry-After", retryAfterSeconds)
	default:
		log.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}

	http.Error(w, body, status)
}

// abandoned reports whether err means the requester went away.
func abandoned(err error) bool {
	return errors.Is(err, media.ErrClientAbort) || errors.Is(err, context.Canceled)
}
