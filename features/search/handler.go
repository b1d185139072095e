package search

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"inquiro/backend/internal/search"
)

type Handler struct {
	service *search.Service
}

func NewHandler(service *search.Service) *Handler {
	return &Handler{service: service}
}

type searchRequest struct {
	Query   string        `json:"query"`
	Limit   *int          `json:"limit,omitempty"`
	History []search.Turn `json:"history,omitempty"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "query is required")
		return
	}

	res, err := h.service.Search(r.Context(), req.Query, &search.Options{
		Limit:   req.Limit,
		History: req.History,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "search failed", "error", err, "query", req.Query)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "search failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
