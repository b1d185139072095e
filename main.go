package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"inquiro/backend/internal/adapter/gemini"
	"inquiro/backend/internal/adapter/reranker"
	"inquiro/backend/internal/app"
	"inquiro/backend/internal/config"
	"inquiro/backend/internal/logger"
	"inquiro/backend/internal/search"
	"inquiro/backend/internal/worker"
)

func main() {
	// Structured logger with correlation id propagation
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()

	tuning := search.DefaultTuning()

	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, tuning.EmbedMaxChars)
	if err != nil {
		return err
	}

	var rr search.Reranker
	if client, err := reranker.NewClient(cfg.RerankProvider, cfg.RerankAPIKey); err != nil {
		slog.Warn("reranker disabled", "error", err)
	} else {
		rr = client
	}

	application, err := app.New(cfg, deps, embedder, rr)
	if err != nil {
		return err
	}

	if cfg.EnableEmbedWorker {
		consumer, err := nsq.NewConsumer(config.TopicEmbedTask, config.ChannelBackend, nsq.NewConfig())
		if err != nil {
			return err
		}
		consumer.AddHandler(nsq.HandlerFunc(application.EmbedConsumer.HandleMessage))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			return err
		}
		defer consumer.Stop()
		slog.Info("embed task consumer connected", "topic", config.TopicEmbedTask)

		// Re-enqueue documents whose embeddings never finished.
		go func() {
			if err := worker.RecoverPendingEmbeddings(ctx, application.DocumentRepo, application.TaskService); err != nil {
				slog.Error("embedding recovery scan failed", "error", err)
			}
		}()
	}

	if !cfg.EnableAPI {
		slog.Info("api disabled, running worker only")
		<-ctx.Done()
		return nil
	}

	return application.Run(ctx)
}
