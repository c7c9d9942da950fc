package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

func (h *handler) listRecordings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	recordings, err := h.recordingRepo.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list recordings", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list recordings")
		return
	}
	jsonResponse(w, http.StatusOK, recordings)
}

func (h *handler) getRecording(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.recordingRepo.Get(r.Context(), id)
	if err != nil {
		slog.Error("failed to get recording", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get recording")
		return
	}
	if rec == nil {
		jsonError(w, http.StatusNotFound, "recording not found")
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}
