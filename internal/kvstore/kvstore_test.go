package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/safevault/safevault/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM kv`).Scan(&count); err != nil {
		t.Fatalf("kv table missing: %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	db := testDB(t)
	if _, err := db.Get(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestSetGetOverwrite(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, "savedLocations", `[]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := db.Set(ctx, "savedLocations", `[{"name":"home"}]`); err != nil {
		t.Fatalf("second Set: %v", err)
	}
	got, err := db.Get(ctx, "savedLocations")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `[{"name":"home"}]` {
		t.Errorf("value = %q", got)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.Set(ctx, "k", "v")

	if err := db.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get(ctx, "k"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := db.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete missing = %v", err)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = db.Set(ctx, "k", "kept")
	db.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	if got, _ := db2.Get(ctx, "k"); got != "kept" {
		t.Errorf("value = %q", got)
	}
}
