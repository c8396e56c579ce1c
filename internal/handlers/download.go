package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"vidmerge/internal/media"
	"vidmerge/internal/metrics"
	"vidmerge/internal/middleware"
	"vidmerge/internal/remux"
	"vidmerge/internal/stream"
	"vidmerge/internal/streaming"
)

const (
	routeVideo = "video"
	routeAudio = "audio"
	routeMerge = "merge"
)

// titleStrip removes everything but word characters and whitespace.
var titleStrip = regexp.MustCompile(`[^\w\s]`)

// selectorParam reads the itag parameter for kind, falling back to the
// legacy quality parameter. Absent both, the highest encoding is chosen.
func selectorParam(r *http.Request, kind media.Kind) media.Selector {
	q := r.URL.Query()
	switch kind {
	case media.KindAudio:
		if v := q.Get("audioItag"); v != "" {
			return media.ParseSelector(v, kind)
		}
		return media.ParseSelector(q.Get("audioQuality"), kind)
	default:
		if v := q.Get("videoItag"); v != "" {
			return media.ParseSelector(v, kind)
		}
		return media.ParseSelector(q.Get("videoQuality"), kind)
	}
}

// DownloadVideo streams one video-only encoding.
func (h *Handlers) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	h.downloadSingle(w, r, media.KindVideo, routeVideo)
}

// DownloadAudio streams one audio-only encoding.
func (h *Handlers) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	h.downloadSingle(w, r, media.KindAudio, routeAudio)
}

func (h *Handlers) downloadSingle(w http.ResponseWriter, r *http.Request, kind media.Kind, route string) {
	st, err := h.source.Open(r.Context(), r.URL.Query().Get("v"), selectorParam(r, kind), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	meta := st.Meta()
	middleware.Annotate(r.Context(), "enc", meta.Encoding.ID)
	filename := fmt.Sprintf("%s_%s.%s", sanitizeTitle(meta.Title), meta.Encoding.ID, meta.Encoding.Extension())

	contentType := meta.Encoding.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment(filename))
	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}

	h.relay(w, r, st, route)
}

// DownloadMerge muxes the selected audio and video encodings into one
// container and streams it.
func (h *Handlers) DownloadMerge(w http.ResponseWriter, r *http.Request) {
	if err := h.muxer.Available(); err != nil {
		log.Error("Multiplexer unavailable: %v", err)
		http.Error(w, "Download failed", http.StatusInternalServerError)
		return
	}
	if h.pressure != nil && h.pressure.IsPaused() {
		writeError(w, r, fmt.Errorf("memory pressure: %w", remux.ErrBusy))
		return
	}

	ctx := r.Context()
	audio, video, err := h.source.OpenPair(ctx, r.URL.Query().Get("v"),
		selectorParam(r, media.KindAudio), selectorParam(r, media.KindVideo))
	if err != nil {
		writeError(w, r, err)
		return
	}

	audioMeta, videoMeta := audio.Meta(), video.Meta()
	format := remux.OutputFormat(audioMeta.Encoding, videoMeta.Encoding)

	// Mux owns both legs from here on, including on error.
	session, err := h.muxer.Mux(ctx, audio, video, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.Annotate(ctx, "enc", videoMeta.Encoding.ID+"+"+audioMeta.Encoding.ID)
	middleware.Annotate(ctx, "session", session.ID())

	filename := fmt.Sprintf("%s_%s_%s.%s", sanitizeTitle(videoMeta.Title),
		videoMeta.Encoding.ID, audioMeta.Encoding.ID, format.Extension)
	w.Header().Set("Content-Type", format.ContentType)
	w.Header().Set("Content-Disposition", attachment(filename))

	log.Debug("Merging %s: audio %s + video %s as %s (session %s)",
		videoMeta.Title, audioMeta.Encoding.ID, videoMeta.Encoding.ID, format.Muxer, session.ID())

	h.relay(w, r, session, routeMerge)
}

// relay copies src to the client and always closes it and waits for its
// teardown. A source failure before the first byte becomes a 500. Any
// other failure aborts the connection so the client sees a truncated
// transfer rather than a clean end.
func (h *Handlers) relay(w http.ResponseWriter, r *http.Request, src stream.Handle, route string) {
	defer func() {
		_ = src.Close()
		<-src.Done()
	}()

	// Bytes are counted while the transfer runs so long downloads show up
	// before they end.
	transferred := metrics.TransferBytesTotal.WithLabelValues(route)
	var counted int64
	config := h.transfer
	config.OnProgress = func(written int64, _ time.Duration) {
		transferred.Add(float64(written - counted))
		counted = written
	}

	n, err := streaming.StreamWithTimeout(r.Context(), w, src, config)
	transferred.Add(float64(n - counted))

	var readErr *streaming.ReadError
	switch {
	case err == nil:
		metrics.TransferOutcomesTotal.WithLabelValues(route, "completed").Inc()
		log.Debug("%s %s completed: %d bytes", r.Method, r.URL.Path, n)
		return

	case errors.As(err, &readErr) && n == 0:
		metrics.TransferOutcomesTotal.WithLabelValues(route, "failed").Inc()
		log.Error("%s %s failed before first byte: %v", r.Method, r.URL.Path, readErr.Err)
		for _, key := range []string{"Content-Disposition", "Content-Length", "Transfer-Encoding", "X-Content-Type-Options"} {
			w.Header().Del(key)
		}
		http.Error(w, "Download failed", http.StatusInternalServerError)
		return

	case errors.Is(err, streaming.ErrWriteTimeout), errors.Is(err, streaming.ErrStreamCanceled):
		metrics.TransferOutcomesTotal.WithLabelValues(route, "timeout").Inc()
		log.Debug("%s %s timed out after %d bytes: %v", r.Method, r.URL.Path, n, err)

	case errors.Is(err, streaming.ErrClientGone), abandoned(err):
		metrics.TransferOutcomesTotal.WithLabelValues(route, "client_gone").Inc()
		log.Debug("%s %s client left after %d bytes: %v", r.Method, r.URL.Path, n, err)

	default:
		metrics.TransferOutcomesTotal.WithLabelValues(route, "failed").Inc()
		log.Warn("%s %s failed after %d bytes: %v", r.Method, r.URL.Path, n, err)
	}

	// Release the handle before unwinding.
	_ = src.Close()
	<-src.Done()
	panic(http.ErrAbortHandler)
}

// sanitizeTitle strips punctuation from a title and collapses whitespace
// so it is usable as a file name.
func sanitizeTitle(title string) string {
	cleaned := strings.Join(strings.Fields(titleStrip.ReplaceAllString(title, "")), " ")
	if cleaned == "" {
		return "video"
	}
	return cleaned
}

// attachment renders a Content-Disposition value for filename.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
