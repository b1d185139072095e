package task

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestMux(repo *MockRepository) *http.ServeMux {
	h := NewHandler(NewService(repo, new(MockPublisher)))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /documents/{id}/task", h.GetByDocument)
	return mux
}

func TestHandlerGetByDocument(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetLatestByDocument", mock.Anything, "doc1").
			Return(&Task{ID: "task1", DocumentID: "doc1", Status: StatusProcessing, Progress: 40}, nil)

		req := httptest.NewRequest("GET", "/documents/doc1/task", nil)
		rec := httptest.NewRecorder()

		newTestMux(repo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"processing"`)
		assert.Contains(t, rec.Body.String(), `"progress":40`)
	})

	t.Run("NoTask", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetLatestByDocument", mock.Anything, "doc1").Return(nil, sql.ErrNoRows)

		req := httptest.NewRequest("GET", "/documents/doc1/task", nil)
		rec := httptest.NewRecorder()

		newTestMux(repo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
