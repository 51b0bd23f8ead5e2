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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quailpub/internal/api"
	"github.com/starford/quailpub/internal/ledger"
	"github.com/starford/quailpub/internal/mcpserver"
	"github.com/starford/quailpub/internal/publisher"
	"github.com/starford/quailpub/internal/sse"
)

// setup applies opts. Without WithLogger, logs are JSON written to out.
func (a *application) setup(opts []Option, out io.Writer) error {
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	return nil
}

// Run serves the REST API, the SSE stream and local attachments, and keeps
// the ledger in sync with the vault until ctx is cancelled or a signal
// arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	if err := app.setup(opts, os.Stdout); err != nil {
		return err
	}
	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("list_id", cfg.Quail.ListID),
		slog.String("uploader", cfg.Uploader.Type),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := NewComponents(ctx, cfg, logger, publisher.WithObserver(broker.PublishTransition))
	if err != nil {
		return err
	}
	defer c.Close()

	if err := ledger.Sync(c.Ledger, c.Store, logger, broker.PublishPostEvent); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	attachmentDir := filepath.Join(cfg.Vault.Path, cfg.Uploader.Local.Dir)
	apiRouter := api.NewRouter(c.Publisher, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker,
		api.NewAttachmentHandler(attachmentDir, c.Uploader))

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
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Files written by the local uploader.
	r.Get("/attachments/{filename}", api.NewAttachmentHandler(attachmentDir, nil).ServeFile)

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ledger.Watch(gCtx, c.Ledger, c.Store, cfg.Vault.Path, logger, broker.PublishPostEvent)
	})

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

// errShutdown stops the remaining goroutines once the HTTP server is down.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	if err := app.setup(opts, os.Stderr); err != nil {
		return err
	}

	c, err := NewComponents(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcpserver.New(c.Store, c.Publisher, mcpserver.WithAttachmentDir(app.config.Uploader.Local.Dir))
	app.logger.Info("MCP server ready", slog.String("vault_path", app.config.Vault.Path))
	return srv.ServeStdio()
}
