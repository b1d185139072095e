package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"inquiro/backend/features/document"
	featuresearch "inquiro/backend/features/search"
	"inquiro/backend/features/task"
	"inquiro/backend/internal/config"
	"inquiro/backend/internal/middleware"
	"inquiro/backend/internal/search"
	"inquiro/backend/internal/text"
	"inquiro/backend/internal/worker"
)

// Embedder covers both embedding paths: single texts for queries and
// batches for document chunks.
type Embedder interface {
	search.Embedder
	worker.BatchEmbedder
}

type App struct {
	Handler         http.Handler
	DocumentService *document.Service
	TaskService     *task.Service
	EmbedConsumer   *worker.EmbedConsumer
	DocumentRepo    *document.PostgresRepo

	port int
}

func New(
	cfg *config.Config,
	deps *Dependencies,
	embedder Embedder,
	reranker search.Reranker,
) (*App, error) {
	tuning := search.DefaultTuning()

	// Feature: Document
	docRepo := document.NewPostgresRepo(deps.DB)

	// Feature: Task
	taskRepo := task.NewPostgresRepo(deps.DB)
	taskService := task.NewService(taskRepo, deps.NSQProducer)
	taskHandler := task.NewHandler(taskService)

	docService := document.NewService(docRepo, taskService, text.SplitOptions{
		ParentSize:   tuning.ParentSize,
		ChildSize:    tuning.ChildSize,
		ChildOverlap: tuning.ChildOverlap,
	})
	docHandler := document.NewHandler(docService, taskService)

	// Feature: Search
	queryLogger, err := search.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = search.NewQueryLogger(os.Stdout)
	}

	chunkSource := featuresearch.NewChunkAdapter(docRepo)
	searchService := search.NewService(chunkSource, embedder, reranker, tuning, queryLogger)
	searchHandler := featuresearch.NewHandler(searchService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(docHandler.Create)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Get)))
	mux.Handle("PATCH /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Patch)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Delete)))
	mux.Handle("GET /documents/{id}/task", middleware.CorrelationID(enableCORS(taskHandler.GetByDocument)))

	mux.Handle("POST /search", middleware.CorrelationID(enableCORS(searchHandler.Search)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	embedConsumer := worker.NewEmbedConsumer(embedder, docRepo, taskRepo, tuning.EmbedBatchSize)

	return &App{
		Handler:         mux,
		DocumentService: docService,
		TaskService:     taskService,
		EmbedConsumer:   embedConsumer,
		DocumentRepo:    docRepo,
		port:            cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
