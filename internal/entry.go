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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/safevault/safevault/internal/api"
	"github.com/safevault/safevault/internal/location"
	"github.com/safevault/safevault/internal/mcpserver"
	"github.com/safevault/safevault/internal/metrics"
	"github.com/safevault/safevault/internal/notify"
	"github.com/safevault/safevault/internal/sse"
	"github.com/safevault/safevault/internal/tui"
	"github.com/safevault/safevault/internal/vault"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_backend", cfg.Vault.Backend),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, err := bootstrap(ctx, cfg, logger, hooks{
		notifier: notify.Multi(notify.Log{Logger: logger}, broker),
		sharer: location.SharerFunc(func(ctx context.Context, req location.ShareRequest) error {
			broker.Publish(sse.Event{Type: "location.shared", Data: req})
			return location.LogSharer{Logger: logger}.Share(ctx, req)
		}),
		onDoc: func(c vault.Change) {
			broker.PublishDocumentEvent(c.Kind, c.Path)
		},
		onLoc: func(c location.Change) {
			if c.Kind != "shared" {
				broker.PublishLocationEvent(c.Kind, c.Location)
			}
		},
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	apiRouter := api.NewRouter(svc.store, svc.tracker, svc.reporter,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.kv.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(sigCtx)

	// Follow external edits of the local vault folder.
	if cfg.Vault.Watch && svc.localDir != "" {
		g.Go(func() error {
			if err := svc.store.Watch(gCtx, svc.localDir); err != nil {
				logger.Warn("watcher unavailable", slog.String("error", err.Error()))
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

	// Handle shutdown.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		// Close the broker first so open event streams end and Shutdown can finish.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

// RunTUI starts the terminal interface on the vault. Logs go to the
// configured output only, io.Discard by default.
func RunTUI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, io.Discard)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	notes := &notify.Recorder{}
	svc, err := bootstrap(ctx, app.config, logger, hooks{
		notifier: notify.Multi(notify.Log{Logger: logger}, notes),
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	p := tea.NewProgram(tui.New(ctx, svc.store, notes), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// RunMCP serves the vault and saved locations to an MCP client over stdio.
// Stdout carries the protocol, so logs default to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	svc, err := bootstrap(ctx, app.config, logger, hooks{
		notifier: notify.Log{Logger: logger},
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc.store, svc.tracker).ServeStdio()
}
