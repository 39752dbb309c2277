// Package location implements the Live Location tracker: it holds the
// device's current position, shares it, and keeps a named list of saved
// locations persisted as one JSON value in a key-value store.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safevault/safevault/internal/apperr"
	"github.com/safevault/safevault/internal/kvstore"
	"github.com/safevault/safevault/internal/metrics"
	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/notify"
)

// StorageKey is the key-value entry holding the saved list.
const StorageKey = "savedLocations"

// DateLayout renders SavedLocation.Date.
const DateLayout = "1/2/2006, 3:04:05 PM"

// Operation names used in notifications.
const (
	OpLoad   = "load_locations"
	OpLocate = "locate"
	OpSave   = "save_location"
	OpShare  = "share_location"
	OpDelete = "delete_location"
)

// Change describes a successful mutation of the saved list or a share.
type Change struct {
	Kind     string // "saved", "deleted", "shared"
	Location models.SavedLocation
}

// Options configures a Tracker.
type Options struct {
	Notifier notify.Notifier
	Logger   *slog.Logger
	OnChange func(Change)
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Tracker owns the current position, the saved list and the pending delete.
type Tracker struct {
	kv       kvstore.Store
	locator  Locator
	sharer   Sharer
	notifier notify.Notifier
	logger   *slog.Logger
	onChange func(Change)
	now      func() time.Time
	newID    func() string

	// writeMu serialises read-persist-replace sequences on the saved list.
	writeMu sync.Mutex

	mu      sync.Mutex
	current *models.Coordinates
	saved   []models.SavedLocation
	pending *models.SavedLocation
}

// NewTracker creates a Tracker. Call Load to read the persisted list.
func NewTracker(kv kvstore.Store, loc Locator, sh Sharer, opts Options) *Tracker {
	t := &Tracker{
		kv:       kv,
		locator:  loc,
		sharer:   sh,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if t.notifier == nil {
		t.notifier = notify.Discard
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.newID == nil {
		t.newID = func() string { return uuid.NewString() }
	}
	return t
}

// Load reads the saved list. A missing key is an empty list; an undecodable
// value is reported and also treated as empty.
func (t *Tracker) Load(ctx context.Context) ([]models.SavedLocation, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	raw, err := t.kv.Get(ctx, StorageKey)
	if errors.Is(err, apperr.ErrNotFound) {
		t.replace(nil)
		return nil, nil
	}
	if err != nil {
		t.fail(ctx, OpLoad, "Failed to load saved locations.", err)
		return t.Saved(), fmt.Errorf("location: load: %w", err)
	}

	var list []models.SavedLocation
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.fail(ctx, OpLoad, "Saved locations could not be read and were reset.", err)
		t.replace(nil)
		return nil, nil
	}
	assigned := false
	for i := range list {
		// Entries written before IDs existed get one now.
		if list[i].ID == "" {
			list[i].ID = t.newID()
			assigned = true
		}
	}
	if assigned {
		if err := t.persist(ctx, list); err != nil {
			t.logger.Warn("location: persisting assigned ids failed", slog.String("error", err.Error()))
		}
	}
	t.replace(list)
	return t.Saved(), nil
}

// Locate asks the locator for the current position. On failure the
// previous position is kept.
func (t *Tracker) Locate(ctx context.Context) (models.Coordinates, error) {
	c, err := t.locator.Locate(ctx)
	if err != nil {
		t.fail(ctx, OpLocate, "Unable to retrieve your location.", err)
		return models.Coordinates{}, fmt.Errorf("location: locate: %w", err)
	}
	t.mu.Lock()
	t.current = &c
	t.mu.Unlock()
	t.logger.Debug("location: position updated",
		slog.Float64("latitude", c.Latitude),
		slog.Float64("longitude", c.Longitude))
	return c, nil
}

// Current returns the last located position.
func (t *Tracker) Current() (models.Coordinates, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return models.Coordinates{}, false
	}
	return *t.current, true
}

// Saved returns a snapshot of the saved list.
func (t *Tracker) Saved() []models.SavedLocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.SavedLocation(nil), t.saved...)
}

// Pending returns the location awaiting delete confirmation.
func (t *Tracker) Pending() (models.SavedLocation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return models.SavedLocation{}, false
	}
	return *t.pending, true
}

// Lookup returns the saved location with the given id.
func (t *Tracker) Lookup(id string) (models.SavedLocation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.saved {
		if l.ID == id {
			return l, true
		}
	}
	return models.SavedLocation{}, false
}

// Save appends the current position under name and persists the list.
func (t *Tracker) Save(ctx context.Context, name string) (models.SavedLocation, error) {
	cur, ok := t.Current()
	if !ok {
		t.reject(ctx, OpSave, "Please get your location first before saving.", apperr.ErrNoPosition)
		return models.SavedLocation{}, fmt.Errorf("location: save: %w", apperr.ErrNoPosition)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		t.reject(ctx, OpSave, "Please enter a valid name for the location.", apperr.ErrInvalidInput)
		return models.SavedLocation{}, fmt.Errorf("location: save: name is required: %w", apperr.ErrInvalidInput)
	}

	now := t.now()
	loc := models.SavedLocation{
		ID:      t.newID(),
		Name:    name,
		URL:     MapsURL(cur),
		Date:    now.Format(DateLayout),
		SavedAt: now,
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	next := append(t.Saved(), loc)
	if err := t.persist(ctx, next); err != nil {
		t.fail(ctx, OpSave, "Failed to save the location.", err)
		return models.SavedLocation{}, fmt.Errorf("location: save: %w", err)
	}
	t.replace(next)

	t.succeed(ctx, OpSave, "Location saved.")
	t.changed(Change{Kind: "saved", Location: loc})
	return loc, nil
}

// Share hands url to the sharer with the standard title and text.
func (t *Tracker) Share(ctx context.Context, url string) error {
	req := ShareRequest{
		Title:       ShareTitle,
		Text:        ShareText,
		URL:         url,
		DialogTitle: ShareDialogTitle,
	}
	if err := t.sharer.Share(ctx, req); err != nil {
		t.fail(ctx, OpShare, "Failed to share the location.", err)
		return fmt.Errorf("location: share: %w", err)
	}
	t.changed(Change{Kind: "shared", Location: models.SavedLocation{URL: url}})
	return nil
}

// ShareCurrent shares the maps link of the current position.
func (t *Tracker) ShareCurrent(ctx context.Context) error {
	cur, ok := t.Current()
	if !ok {
		t.reject(ctx, OpShare, "Please get your location first before sharing.", apperr.ErrNoPosition)
		return fmt.Errorf("location: share: %w", apperr.ErrNoPosition)
	}
	return t.Share(ctx, MapsURL(cur))
}

// ShareSaved shares a saved location by id.
func (t *Tracker) ShareSaved(ctx context.Context, id string) error {
	loc, ok := t.Lookup(id)
	if !ok {
		return fmt.Errorf("location: share %s: %w", id, apperr.ErrNotFound)
	}
	return t.Share(ctx, loc.URL)
}

// RequestDelete marks a saved location for deletion.
func (t *Tracker) RequestDelete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.saved {
		if l.ID == id {
			p := l
			t.pending = &p
			return nil
		}
	}
	return fmt.Errorf("location: delete %s: %w", id, apperr.ErrNotFound)
}

// CancelDelete drops the pending delete.
func (t *Tracker) CancelDelete() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return fmt.Errorf("location: cancel delete: %w", apperr.ErrNoPendingDelete)
	}
	t.pending = nil
	return nil
}

// ConfirmDelete removes the pending location and persists the list. On
// failure the delete stays pending.
func (t *Tracker) ConfirmDelete(ctx context.Context) error {
	pending, ok := t.Pending()
	if !ok {
		t.reject(ctx, OpDelete, "No location is waiting for deletion.", apperr.ErrNoPendingDelete)
		return fmt.Errorf("location: delete: %w", apperr.ErrNoPendingDelete)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	cur := t.Saved()
	next := make([]models.SavedLocation, 0, len(cur))
	for _, l := range cur {
		if l.ID != pending.ID {
			next = append(next, l)
		}
	}
	if err := t.persist(ctx, next); err != nil {
		t.fail(ctx, OpDelete, "Failed to delete the location.", err)
		return fmt.Errorf("location: delete %s: %w", pending.ID, err)
	}

	t.mu.Lock()
	t.saved = next
	if t.pending != nil && t.pending.ID == pending.ID {
		t.pending = nil
	}
	t.mu.Unlock()
	metrics.SetSavedLocations(len(next))

	t.succeed(ctx, OpDelete, "Location deleted.")
	t.changed(Change{Kind: "deleted", Location: pending})
	return nil
}

func (t *Tracker) persist(ctx context.Context, list []models.SavedLocation) error {
	if list == nil {
		list = []models.SavedLocation{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return t.kv.Set(ctx, StorageKey, string(data))
}

func (t *Tracker) replace(list []models.SavedLocation) {
	t.mu.Lock()
	t.saved = list
	t.mu.Unlock()
	metrics.SetSavedLocations(len(list))
}

func (t *Tracker) changed(c Change) {
	if t.onChange != nil {
		t.onChange(c)
	}
}

func (t *Tracker) succeed(ctx context.Context, op, msg string) {
	t.notifier.Notify(ctx, notify.Notification{Kind: notify.KindSuccess, Op: op, Message: msg})
}

func (t *Tracker) fail(ctx context.Context, op, msg string, err error) {
	t.logger.Error("location: "+op+" failed", slog.String("error", err.Error()))
	t.notifier.Notify(ctx, notify.Notification{Kind: notify.KindFailure, Op: op, Message: msg, Err: err})
}

func (t *Tracker) reject(ctx context.Context, op, msg string, err error) {
	t.notifier.Notify(ctx, notify.Notification{Kind: notify.KindValidation, Op: op, Message: msg, Err: err})
}
