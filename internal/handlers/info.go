package handlers

import (
	"errors"
	"net/http"

	"vidmerge/internal/media"
)

// InfoResponse is the /info envelope.
type InfoResponse struct {
	Success bool           `json:"success"`
	Data    *media.Catalog `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
}

// GetInfo returns the title, thumbnails and selectable encodings of the
// link in the v query parameter.
func (h *Handlers) GetInfo(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.resolver.Resolve(r.Context(), r.URL.Query().Get("v"))
	if err != nil {
		if errors.Is(err, media.ErrInvalidLink) {
			log.Debug("Rejected link: %v", err)
			writeJSONStatus(w, http.StatusBadRequest, InfoResponse{Success: false, Message: "Invalid URL"})
			return
		}
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatus(w, http.StatusOK, InfoResponse{Success: true, Data: catalog})
}
