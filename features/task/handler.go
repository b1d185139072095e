package task

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetByDocument serves GET /documents/{id}/task: the most recent embedding
// task for progress display.
func (h *Handler) GetByDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		writeError(w, "VALIDATION_ERROR", "document id is required", http.StatusBadRequest)
		return
	}

	t, err := h.service.LatestForDocument(r.Context(), documentID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch task", "error", err, "document_id", documentID)
		writeError(w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if t == nil {
		writeError(w, "NOT_FOUND", "no embedding task for document", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": t}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}
