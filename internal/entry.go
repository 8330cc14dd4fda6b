// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lexicon/internal/api"
	"github.com/starford/lexicon/internal/docsource"
	"github.com/starford/lexicon/internal/mcpserver"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("document", cfg.Document.Source),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	eng, err := app.start(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.close(); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: newHTTPHandler(cfg, eng),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the body whenever the source file changes.
	if cfg.Document.Watch && !docsource.IsRemote(cfg.Document.Source) {
		g.Go(func() error {
			err := docsource.Watch(gCtx, cfg.Document.Source, logger, func(data []byte) {
				if err := eng.svc.Reload(gCtx, data); err != nil {
					logger.Error("watcher: reload failed", slog.String("error", err.Error()))
					return
				}
				logger.Info("watcher: document reloaded", slog.String("source", cfg.Document.Source))
				eng.broker.PublishDocumentChange("reload")
			})
			if err != nil {
				logger.Warn("watcher: stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

func newHTTPHandler(cfg *Config, eng *engine) http.Handler {
	apiRouter := api.NewRouter(eng.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, eng.broker, eng.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if !eng.session.Enabled() {
			_, _ = w.Write([]byte(`{"status":"ok","substitution":"disabled"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","substitution":"enabled"}`))
	})

	r.Handle("/metrics", eng.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	return r
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()

	eng, err := app.start(ctx, logger)
	if err != nil {
		return err
	}
	defer eng.close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(eng.svc, app.version).ServeStdio()
}

// RunSubstitute runs one session against the configured document and writes
// the rewritten HTML to out. Substitution being disabled is not an error: the
// document is written unchanged.
func RunSubstitute(ctx context.Context, out io.Writer, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()

	eng, err := app.start(ctx, logger)
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.session.Err(); err != nil {
		logger.Warn("substitute: writing document unchanged", slog.String("reason", err.Error()))
	}
	snap, err := eng.svc.Document(ctx)
	if err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	if _, err := io.WriteString(out, snap.HTML); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
