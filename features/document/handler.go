package document

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type Handler struct {
	service  *Service
	statuses EmbeddingStatusReader
}

func NewHandler(service *Service, statuses EmbeddingStatusReader) *Handler {
	return &Handler{service: service, statuses: statuses}
}

type createRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "title and content are required")
		return
	}

	doc := &Document{Title: req.Title, Category: req.Category}
	if err := h.service.Create(r.Context(), doc, req.Content); err != nil {
		if errors.Is(err, ErrDuplicate) {
			writeError(w, http.StatusConflict, "DUPLICATE_DOCUMENT", "document with identical content already exists")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create document", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create document")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := h.service.Get(r.Context(), id, h.statuses)
	if err != nil {
		if NotFound(err) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "document not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get document", "error", err, "document_id", id)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get document")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type patchRequest struct {
	Category string `json:"category"`
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "category is required")
		return
	}

	if err := h.service.UpdateCategory(r.Context(), id, req.Category); err != nil {
		if NotFound(err) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "document not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update document", "error", err, "document_id", id)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if NotFound(err) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "document not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete document", "error", err, "document_id", id)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
