package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/safevault/safevault/internal/apperr"
	"github.com/safevault/safevault/internal/kvstore"
	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/notify"
)

// memKV is an in-memory kvstore.Store that can be told to fail writes.
type memKV struct {
	mu      sync.Mutex
	data    map[string]string
	failSet error
	// delay and onSet run before each write, outside the lock.
	delay time.Duration
	onSet func()
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.onSet != nil {
		m.onSet()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func newTestTracker(t *testing.T, kv kvstore.Store, loc Locator, sh Sharer) (*Tracker, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	n := 0
	tr := NewTracker(kv, loc, sh, Options{
		Notifier: rec,
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Now:      func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	if _, err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tr, rec
}

var home = models.Coordinates{Latitude: 37.422, Longitude: -122.084}

func TestMapsURL(t *testing.T) {
	if got := MapsURL(home); got != "https://www.google.com/maps?q=37.422,-122.084" {
		t.Errorf("MapsURL = %q", got)
	}
	if got := MapsURL(models.Coordinates{Latitude: 1, Longitude: 0.5}); got != "https://www.google.com/maps?q=1,0.5" {
		t.Errorf("MapsURL = %q", got)
	}
}

func TestSaveRequiresPosition(t *testing.T) {
	kv := newMemKV()
	tr, rec := newTestTracker(t, kv, &ReportedLocator{}, LogSharer{Logger: slog.Default()})

	_, err := tr.Save(context.Background(), "Home")
	if !errors.Is(err, apperr.ErrNoPosition) {
		t.Fatalf("Save = %v, want ErrNoPosition", err)
	}
	if n, _ := rec.Last(); n.Message != "Please get your location first before saving." {
		t.Errorf("notification = %+v", n)
	}
	if len(kv.data) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestSaveRequiresName(t *testing.T) {
	tr, rec := newTestTracker(t, newMemKV(), StaticLocator{Position: home}, LogSharer{Logger: slog.Default()})
	_, _ = tr.Locate(context.Background())

	_, err := tr.Save(context.Background(), "   ")
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("Save = %v, want ErrInvalidInput", err)
	}
	if n, _ := rec.Last(); n.Message != "Please enter a valid name for the location." {
		t.Errorf("notification = %+v", n)
	}
}

func TestSavePersistsAndSurvivesNewTracker(t *testing.T) {
	db, err := kvstore.Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	tr, _ := newTestTracker(t, db, StaticLocator{Position: home}, LogSharer{Logger: slog.Default()})
	if _, err := tr.Locate(ctx); err != nil {
		t.Fatalf("Locate: %v", err)
	}
	loc, err := tr.Save(ctx, " Office ")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if loc.Name != "Office" || loc.URL != MapsURL(home) || loc.Date != "3/9/2024, 2:05:07 PM" || loc.ID != "id-1" {
		t.Errorf("saved = %+v", loc)
	}

	again, _ := newTestTracker(t, db, StaticLocator{}, LogSharer{Logger: slog.Default()})
	got := again.Saved()
	if len(got) != 1 || got[0].Name != "Office" || got[0].ID != "id-1" {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestSavePersistFailureKeepsMemory(t *testing.T) {
	kv := newMemKV()
	tr, rec := newTestTracker(t, kv, StaticLocator{Position: home}, LogSharer{Logger: slog.Default()})
	ctx := context.Background()
	_, _ = tr.Locate(ctx)

	kv.failSet = errors.New("disk full")
	if _, err := tr.Save(ctx, "Home"); err == nil {
		t.Fatal("expected persist failure")
	}
	if len(tr.Saved()) != 0 {
		t.Error("failed save reached memory")
	}
	if n, _ := rec.Last(); n.Kind != notify.KindFailure {
		t.Errorf("notification = %+v", n)
	}
}

func TestLoadCorruptValue(t *testing.T) {
	kv := newMemKV()
	kv.data[StorageKey] = "{not json"
	tr, rec := newTestTracker(t, kv, StaticLocator{}, LogSharer{Logger: slog.Default()})
	if len(tr.Saved()) != 0 {
		t.Errorf("saved = %+v", tr.Saved())
	}
	if n, ok := rec.Last(); !ok || n.Kind != notify.KindFailure || n.Op != OpLoad {
		t.Errorf("notification = %+v", n)
	}
}

func TestLoadAssignsMissingIDs(t *testing.T) {
	kv := newMemKV()
	kv.data[StorageKey] = `[{"name":"Old","url":"https://www.google.com/maps?q=1,2","date":"1/1/2020, 9:00:00 AM"}]`
	tr, _ := newTestTracker(t, kv, StaticLocator{}, LogSharer{Logger: slog.Default()})
	got := tr.Saved()
	if len(got) != 1 || got[0].ID == "" || got[0].Name != "Old" {
		t.Fatalf("saved = %+v", got)
	}

	// The assigned ID is written back, so reloading keeps it.
	again, err := tr.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(again) != 1 || again[0].ID != got[0].ID {
		t.Errorf("reloaded = %+v, want id %q", again, got[0].ID)
	}
	var stored []models.SavedLocation
	if err := json.Unmarshal([]byte(kv.data[StorageKey]), &stored); err != nil {
		t.Fatalf("stored value: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != got[0].ID {
		t.Errorf("stored = %+v", stored)
	}
}

func TestConcurrentSavesKeepEveryEntry(t *testing.T) {
	kv := newMemKV()
	kv.delay = 5 * time.Millisecond
	tr := NewTracker(kv, StaticLocator{Position: home}, LogSharer{Logger: slog.Default()}, Options{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	ctx := context.Background()
	if _, err := tr.Locate(ctx); err != nil {
		t.Fatalf("Locate: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := tr.Save(ctx, fmt.Sprintf("place-%d", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Save: %v", err)
	}

	if got := tr.Saved(); len(got) != n {
		t.Errorf("in memory = %d entries, want %d", len(got), n)
	}
	var stored []models.SavedLocation
	if err := json.Unmarshal([]byte(kv.data[StorageKey]), &stored); err != nil {
		t.Fatalf("stored value: %v", err)
	}
	if len(stored) != n {
		t.Errorf("persisted = %d entries, want %d", len(stored), n)
	}
}

func TestConfirmDeleteKeepsNewerPending(t *testing.T) {
	kv := newMemKV()
	tr, _ := newTestTracker(t, kv, StaticLocator{Position: home}, LogSharer{Logger: slog.Default()})
	ctx := context.Background()
	_, _ = tr.Locate(ctx)
	a, _ := tr.Save(ctx, "A")
	b, _ := tr.Save(ctx, "B")

	_ = tr.RequestDelete(a.ID)
	// While A's delete is being written, the user cancels and picks B.
	kv.onSet = func() {
		kv.onSet = nil
		_ = tr.CancelDelete()
		_ = tr.RequestDelete(b.ID)
	}
	if err := tr.ConfirmDelete(ctx); err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}
	p, ok := tr.Pending()
	if !ok || p.ID != b.ID {
		t.Errorf("pending = %+v, %v; want B still pending", p, ok)
	}
}

func TestLocateFailureKeepsPosition(t *testing.T) {
	rl := &ReportedLocator{}
	tr, rec := newTestTracker(t, newMemKV(), rl, LogSharer{Logger: slog.Default()})
	ctx := context.Background()

	if _, err := tr.Locate(ctx); !errors.Is(err, apperr.ErrNoPosition) {
		t.Fatalf("Locate = %v, want ErrNoPosition", err)
	}
	if n, _ := rec.Last(); n.Kind != notify.KindFailure || n.Op != OpLocate {
		t.Errorf("notification = %+v", n)
	}

	_ = rl.Report(home)
	_, _ = tr.Locate(ctx)
	if cur, ok := tr.Current(); !ok || cur != home {
		t.Errorf("current = %+v, %v", cur, ok)
	}
}

func TestReportRejectsOutOfRange(t *testing.T) {
	rl := &ReportedLocator{}
	for _, c := range []models.Coordinates{{Latitude: 91}, {Longitude: -181}} {
		if err := rl.Report(c); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Report(%+v) = %v, want ErrInvalidInput", c, err)
		}
	}
}

func TestShareCurrent(t *testing.T) {
	var got ShareRequest
	sh := SharerFunc(func(_ context.Context, req ShareRequest) error {
		got = req
		return nil
	})
	tr, _ := newTestTracker(t, newMemKV(), StaticLocator{Position: home}, sh)
	ctx := context.Background()

	if err := tr.ShareCurrent(ctx); !errors.Is(err, apperr.ErrNoPosition) {
		t.Errorf("ShareCurrent without position = %v", err)
	}
	_, _ = tr.Locate(ctx)
	if err := tr.ShareCurrent(ctx); err != nil {
		t.Fatalf("ShareCurrent: %v", err)
	}
	want := ShareRequest{Title: "My Current Location", Text: "Here is my current location:", URL: MapsURL(home), DialogTitle: "Share Location"}
	if got != want {
		t.Errorf("request = %+v", got)
	}
}

func TestShareFailureNotified(t *testing.T) {
	sh := SharerFunc(func(context.Context, ShareRequest) error { return errors.New("cancelled") })
	tr, rec := newTestTracker(t, newMemKV(), StaticLocator{Position: home}, sh)
	if err := tr.Share(context.Background(), "https://example.com"); err == nil {
		t.Fatal("expected share error")
	}
	if n, _ := rec.Last(); n.Kind != notify.KindFailure || n.Op != OpShare {
		t.Errorf("notification = %+v", n)
	}
}

func TestDeleteTwoStep(t *testing.T) {
	kv := newMemKV()
	var changes []string
	tr, _ := newTestTracker(t, kv, StaticLocator{Position: home}, LogSharer{Logger: slog.Default()})
	tr.onChange = func(c Change) { changes = append(changes, c.Kind) }
	ctx := context.Background()
	_, _ = tr.Locate(ctx)
	a, _ := tr.Save(ctx, "A")
	b, _ := tr.Save(ctx, "B")

	if err := tr.RequestDelete("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("RequestDelete missing = %v", err)
	}
	_ = tr.RequestDelete(a.ID)
	if err := tr.CancelDelete(); err != nil {
		t.Fatalf("CancelDelete: %v", err)
	}
	if err := tr.ConfirmDelete(ctx); !errors.Is(err, apperr.ErrNoPendingDelete) {
		t.Errorf("ConfirmDelete after cancel = %v", err)
	}

	_ = tr.RequestDelete(a.ID)
	kv.failSet = errors.New("locked")
	if err := tr.ConfirmDelete(ctx); err == nil {
		t.Fatal("expected delete failure")
	}
	if _, ok := tr.Pending(); !ok {
		t.Error("failed delete should stay pending")
	}
	kv.failSet = nil
	if err := tr.ConfirmDelete(ctx); err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}

	got := tr.Saved()
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("saved = %+v", got)
	}
	if kv.data[StorageKey] == "" {
		t.Error("list not persisted")
	}
	if len(changes) != 3 || changes[2] != "deleted" {
		t.Errorf("changes = %v", changes)
	}
}
