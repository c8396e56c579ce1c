package handlers

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"vidmerge/internal/media"
	"vidmerge/internal/metrics"
	"vidmerge/internal/thumbnail"
)

// GetThumbnail serves the largest preview of the link in v, resized to
// the optional width parameter.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	catalog, err := h.resolver.Resolve(ctx, r.URL.Query().Get("v"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	best, ok := thumbnail.Best(catalog.Thumbnails)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: no thumbnails for %q", media.ErrLinkNotFound, catalog.Title))
		return
	}

	width, _ := strconv.Atoi(r.URL.Query().Get("width"))

	data, err := h.thumbs.Fetch(ctx, best.URL, width)
	if err != nil {
		metrics.ThumbnailRequestsTotal.WithLabelValues("error").Inc()
		writeError(w, r, err)
		return
	}
	metrics.ThumbnailRequestsTotal.WithLabelValues("success").Inc()

	etag := thumbnailETag(data)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		log.Debug("Failed to write thumbnail: %v", err)
	}
}

// thumbnailETag returns a strong validator for the encoded image.
func thumbnailETag(data []byte) string {
	sum := blake2b.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
