// Package rest exposes the HTTP API consumed by photo frames and dashboards.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lumina-frame/lumina-photoframe-backend/internal/domain/rotation"
	"github.com/lumina-frame/lumina-photoframe-backend/internal/infra/supply"
)

// DefaultHistoryLimit caps history responses unless the client asks for less.
const DefaultHistoryLimit = 100

// PhotoSource is the rotation cache as seen by the transport layer.
type PhotoSource interface {
	CurrentPhotos(ctx context.Context, now time.Time) ([]rotation.Photo, error)
	HistorySnapshot() []rotation.HistoryEntry
	WindowStartedAt() time.Time
}

// CurrentPhotosResponse is the payload for the current rotation window.
type CurrentPhotosResponse struct {
	Photos          []rotation.Photo `json:"photos"`
	Count           int              `json:"count"`
	WindowStartedAt time.Time        `json:"window_started_at"`
}

// HistoryResponse lists served photos, newest first.
type HistoryResponse struct {
	Entries []rotation.HistoryEntry `json:"entries"`
	Total   int                     `json:"total"`
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the photo endpoints.
type Handler struct {
	photos PhotoSource
}

// NewHandler creates a REST handler backed by the given photo source.
func NewHandler(photos PhotoSource) *Handler {
	return &Handler{photos: photos}
}

// Register mounts the photo routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/photos/current", h.handleCurrent)
	mux.HandleFunc("/api/v1/photos/history", h.handleHistory)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	photos, err := h.photos.CurrentPhotos(r.Context(), time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get current photos")
		if supply.IsTemporaryError(err) {
			writeError(w, http.StatusServiceUnavailable, "photo supply temporarily unavailable")
			return
		}
		writeError(w, http.StatusBadGateway, "photo supply unavailable")
		return
	}

	writeJSON(w, CurrentPhotosResponse{
		Photos:          photos,
		Count:           len(photos),
		WindowStartedAt: h.photos.WindowStartedAt(),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.photos.HistorySnapshot()
	total := len(entries)

	// Snapshot is oldest-first; display wants newest-first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	writeJSON(w, HistoryResponse{
		Entries: entries,
		Total:   total,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
