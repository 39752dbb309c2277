// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/safevault/safevault/internal/kvstore"
	"github.com/safevault/safevault/internal/notify"
	"github.com/safevault/safevault/internal/storage"
	"github.com/safevault/safevault/internal/vault"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestKV creates a temporary key-value database that is closed on cleanup.
func TestKV(t *testing.T) *kvstore.DB {
	t.Helper()
	db, err := kvstore.Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault root with a file-system provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	fs, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, fs
}

// TestStore creates a vault store over a temporary root with its folder in
// place. It returns the absolute folder path and the recorder wired in as
// the store's notifier. opts.Notifier and opts.Logger are overwritten.
func TestStore(t *testing.T, opts vault.Options) (*vault.Store, string, *notify.Recorder) {
	t.Helper()
	root, fs := TestVault(t)
	rec := &notify.Recorder{}
	opts.Notifier = rec
	opts.Logger = Logger()
	store := vault.New(fs, opts)
	if err := store.EnsureFolderExists(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store, filepath.Join(root, filepath.FromSlash(store.Folder())), rec
}
