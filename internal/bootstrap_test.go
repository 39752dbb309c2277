package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/safevault/safevault/internal/location"
	"github.com/safevault/safevault/internal/notify"
	"github.com/safevault/safevault/internal/vault"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Root = filepath.Join(dir, "data")
	cfg.SQLite.Path = filepath.Join(dir, "kv.db")
	return cfg
}

func TestNewApplicationRequiresConfig(t *testing.T) {
	if _, err := newApplication(nil, io.Discard); err == nil {
		t.Fatal("expected error without config")
	}
	app, err := newApplication([]Option{WithConfig(NewDefaultConfig()), WithLogOutput(os.Stderr)}, io.Discard)
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	if app.logOutput != os.Stderr {
		t.Error("WithLogOutput not applied")
	}
}

func TestBootstrapFS(t *testing.T) {
	cfg := testConfig(t)
	app, _ := newApplication([]Option{WithConfig(cfg)}, io.Discard)
	logger := app.newLogger()

	// Pre-existing document is listed on startup.
	folder := filepath.Join(cfg.Vault.Root, cfg.Vault.Folder)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "old.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var changes []vault.Change
	rec := &notify.Recorder{}
	svc, err := bootstrap(context.Background(), cfg, logger, hooks{
		notifier: rec,
		onDoc:    func(c vault.Change) { changes = append(changes, c) },
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer svc.Close()

	if got := svc.store.Documents(); len(got) != 1 || got[0].Name() != "old.txt" {
		t.Errorf("documents = %+v", got)
	}
	if svc.localDir != folder {
		t.Errorf("localDir = %q, want %q", svc.localDir, folder)
	}
	if svc.reporter == nil {
		t.Error("reported locator expected by default")
	}
	if len(svc.tracker.Saved()) != 0 {
		t.Errorf("saved = %+v", svc.tracker.Saved())
	}

	if _, err := svc.store.Create(context.Background(), "new", "body"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	found := false
	for _, c := range changes {
		if c.Kind == "created" {
			found = true
		}
	}
	if !found {
		t.Errorf("changes = %+v, want a created event", changes)
	}
}

func TestBootstrapCreatesFolder(t *testing.T) {
	cfg := testConfig(t)
	app, _ := newApplication([]Option{WithConfig(cfg)}, io.Discard)

	svc, err := bootstrap(context.Background(), cfg, app.newLogger(), hooks{notifier: &notify.Recorder{}})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer svc.Close()

	info, err := os.Stat(filepath.Join(cfg.Vault.Root, cfg.Vault.Folder))
	if err != nil || !info.IsDir() {
		t.Fatalf("vault folder not created: %v", err)
	}
}

func TestNewLocator(t *testing.T) {
	loc, rep := newLocator(LocationConfig{Locator: LocatorStatic, Latitude: 1.5, Longitude: -2})
	if rep != nil {
		t.Error("static locator must not expose a reporter")
	}
	c, err := loc.Locate(context.Background())
	if err != nil || c.Latitude != 1.5 || c.Longitude != -2 {
		t.Errorf("Locate = %+v, %v", c, err)
	}

	loc, rep = newLocator(LocationConfig{Locator: LocatorReported})
	if rep == nil {
		t.Fatal("reported locator expected")
	}
	if _, ok := loc.(*location.ReportedLocator); !ok {
		t.Errorf("locator = %T", loc)
	}
}
