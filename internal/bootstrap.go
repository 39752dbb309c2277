package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/safevault/safevault/internal/kvstore"
	"github.com/safevault/safevault/internal/location"
	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/notify"
	"github.com/safevault/safevault/internal/storage"
	"github.com/safevault/safevault/internal/storage/s3"
	"github.com/safevault/safevault/internal/vault"
)

func newApplication(opts []Option, defaultLog io.Writer) (*application, error) {
	app := &application{logOutput: defaultLog}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger and installs it as the default.
func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// hooks connects the domain services to an outer surface.
type hooks struct {
	notifier notify.Notifier
	sharer   location.Sharer
	onDoc    func(vault.Change)
	onLoc    func(location.Change)
}

// services are the wired domain components shared by every entrypoint.
type services struct {
	store    *vault.Store
	tracker  *location.Tracker
	reporter *location.ReportedLocator
	kv       *kvstore.DB
	// localDir is the absolute vault folder for the fs backend, empty otherwise.
	localDir string
}

func (s *services) Close() error {
	return s.kv.Close()
}

// newProvider opens the configured storage backend wrapped with metrics.
func newProvider(ctx context.Context, cfg *Config) (storage.Provider, string, error) {
	switch cfg.Vault.Backend {
	case BackendS3:
		b, err := s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, "", fmt.Errorf("init s3 storage: %w", err)
		}
		return storage.WithMetrics(b, BackendS3), "", nil
	default:
		if err := os.MkdirAll(cfg.Vault.Root, 0o755); err != nil {
			return nil, "", fmt.Errorf("create vault root: %w", err)
		}
		fs, err := storage.NewFS(cfg.Vault.Root)
		if err != nil {
			return nil, "", fmt.Errorf("init storage: %w", err)
		}
		return storage.WithMetrics(fs, BackendFS), fs.Root(), nil
	}
}

func newLocator(cfg LocationConfig) (location.Locator, *location.ReportedLocator) {
	if cfg.Locator == LocatorStatic {
		return location.StaticLocator{Position: models.Coordinates{
			Latitude:  cfg.Latitude,
			Longitude: cfg.Longitude,
		}}, nil
	}
	r := &location.ReportedLocator{}
	return r, r
}

// bootstrap opens storage and the KV database, builds the vault store and
// the location tracker, and loads their initial state. Folder and listing
// failures are logged and notified but do not stop startup.
func bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, h hooks) (*services, error) {
	provider, root, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	kv, err := kvstore.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init kv store: %w", err)
	}

	store := vault.New(provider, vault.Options{
		Folder:      cfg.Vault.Folder,
		Extension:   cfg.Vault.Extension,
		OnDuplicate: vault.DuplicatePolicy(cfg.Vault.OnDuplicate),
		SyncMode:    vault.SyncMode(cfg.Vault.SyncMode),
		Notifier:    h.notifier,
		Logger:      logger,
		OnChange:    h.onDoc,
	})

	sharer := h.sharer
	if sharer == nil {
		sharer = location.LogSharer{Logger: logger}
	}
	locator, reporter := newLocator(cfg.Location)
	tracker := location.NewTracker(kv, locator, sharer, location.Options{
		Notifier: h.notifier,
		Logger:   logger,
		OnChange: h.onLoc,
	})

	svc := &services{store: store, tracker: tracker, reporter: reporter, kv: kv}
	if root != "" {
		svc.localDir = filepath.Join(root, filepath.FromSlash(store.Folder()))
	}

	if err := store.EnsureFolderExists(ctx); err != nil {
		logger.Warn("vault folder not ready", slog.String("error", err.Error()))
	}
	if _, err := store.Refresh(ctx); err != nil {
		logger.Warn("initial listing failed", slog.String("error", err.Error()))
	}
	if _, err := tracker.Load(ctx); err != nil {
		logger.Warn("loading saved locations failed", slog.String("error", err.Error()))
	}

	logger.Info("Vault ready",
		slog.String("backend", cfg.Vault.Backend),
		slog.String("folder", store.Folder()),
		slog.Int("documents", len(store.Documents())),
		slog.Int("saved_locations", len(tracker.Saved())))

	return svc, nil
}
