// Package vault implements the document vault: a list of text documents
// kept in one folder of a storage backend, and the editing session that
// creates, opens, updates and deletes them.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/safevault/safevault/internal/apperr"
	"github.com/safevault/safevault/internal/checksum"
	"github.com/safevault/safevault/internal/metrics"
	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/notify"
	"github.com/safevault/safevault/internal/storage"
)

// Defaults for Options.
const (
	DefaultFolder    = "MyVaultDocuments"
	DefaultExtension = ".txt"
)

// Operation names used in notifications, change events and metrics.
const (
	OpEnsureFolder = "ensure_folder"
	OpCreate       = "create"
	OpRefresh      = "refresh"
	OpOpen         = "open"
	OpUpdate       = "update"
	OpDelete       = "delete"
)

// DuplicatePolicy decides what Create does when the target path exists.
type DuplicatePolicy string

const (
	DuplicateOverwrite DuplicatePolicy = "overwrite"
	DuplicateReject    DuplicatePolicy = "reject"
)

// SyncMode decides how the list follows successful mutations.
type SyncMode string

const (
	// SyncRelist re-lists the folder after every create and update.
	SyncRelist SyncMode = "relist"
	// SyncPatch inserts the written entry into the list without re-listing.
	SyncPatch SyncMode = "patch"
)

// Change describes a successful mutation of the vault.
type Change struct {
	Kind string // "created", "updated", "deleted", "refreshed"
	Path string
}

// Options configures a Store. Zero values fall back to the defaults.
type Options struct {
	Folder      string
	Extension   string
	OnDuplicate DuplicatePolicy
	SyncMode    SyncMode
	Notifier    notify.Notifier
	Logger      *slog.Logger
	// OnChange, if set, is called after each successful mutation and refresh.
	OnChange func(Change)
}

// Store is the vault state holder. It keeps the document list in step with
// the folder and owns the editing session.
type Store struct {
	store    storage.Provider
	folder   string
	ext      string
	dup      DuplicatePolicy
	syncMode SyncMode
	notifier notify.Notifier
	logger   *slog.Logger
	onChange func(Change)

	mu      sync.Mutex
	docs    []models.Document
	session Session
}

// New creates a Store over the given storage provider.
func New(p storage.Provider, opts Options) *Store {
	s := &Store{
		store:    p,
		folder:   strings.Trim(opts.Folder, "/"),
		ext:      opts.Extension,
		dup:      opts.OnDuplicate,
		syncMode: opts.SyncMode,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		session:  Session{State: StateIdle},
	}
	if s.folder == "" {
		s.folder = DefaultFolder
	}
	if s.ext == "" {
		s.ext = DefaultExtension
	}
	if s.dup == "" {
		s.dup = DuplicateOverwrite
	}
	if s.syncMode == "" {
		s.syncMode = SyncRelist
	}
	if s.notifier == nil {
		s.notifier = notify.Discard
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Folder returns the vault folder relative to the storage root.
func (s *Store) Folder() string {
	return s.folder
}

// Extension returns the file extension of managed documents.
func (s *Store) Extension() string {
	return s.ext
}

// PathFor derives the document path for a user-supplied name.
func (s *Store) PathFor(name string) string {
	return s.folder + "/" + strings.TrimSpace(name) + s.ext
}

// Documents returns a snapshot of the current list.
func (s *Store) Documents() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Document(nil), s.docs...)
}

// Session returns a snapshot of the editing session.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone()
}

// Lookup returns the listed document with the given path.
func (s *Store) Lookup(p string) (models.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.Path == p {
			return d, true
		}
	}
	return models.Document{}, false
}

// EnsureFolderExists creates the vault folder. An already-existing folder is
// not an error and is not logged; other failures are logged and returned so
// the caller can decide to carry on.
func (s *Store) EnsureFolderExists(ctx context.Context) error {
	err := s.store.Mkdir(ctx, s.folder, true)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return nil
	}
	s.logger.Error("vault: create folder failed",
		slog.String("folder", s.folder),
		slog.String("error", err.Error()))
	metrics.RecordVaultOperation(OpEnsureFolder, metrics.OutcomeFailure)
	return err
}

// Create writes a new document named name with the given content. Both are
// trimmed and must be non-empty. An existing document with the same name is
// overwritten or rejected depending on the duplicate policy.
func (s *Store) Create(ctx context.Context, name, content string) (models.Document, error) {
	name = strings.TrimSpace(name)
	content = strings.TrimSpace(content)

	if err := validateCreate(name, content); err != nil {
		msg := "Please provide both file name and content."
		if name != "" && content != "" {
			msg = "The file name is not allowed: " + err.Error()
		}
		s.reject(ctx, OpCreate, "", msg, err)
		return models.Document{}, fmt.Errorf("vault: create: %w: %w", apperr.ErrInvalidInput, err)
	}

	p := s.PathFor(name)
	if s.dup == DuplicateReject {
		_, err := s.store.ReadFile(ctx, p)
		switch {
		case err == nil:
			s.fail(ctx, OpCreate, p, "A document with this name already exists.", apperr.ErrAlreadyExists)
			return models.Document{}, fmt.Errorf("vault: create %s: %w", p, apperr.ErrAlreadyExists)
		case !errors.Is(err, fs.ErrNotExist):
			s.fail(ctx, OpCreate, p, "Failed to save the document.", err)
			return models.Document{}, fmt.Errorf("vault: create %s: %w", p, err)
		}
	}

	if err := s.store.WriteFile(ctx, p, []byte(content)); err != nil {
		s.fail(ctx, OpCreate, p, "Failed to save the document.", err)
		return models.Document{}, fmt.Errorf("vault: create %s: %w", p, err)
	}

	s.succeed(ctx, OpCreate, p, "Document saved successfully!")
	doc := models.Document{Path: p}
	s.afterWrite(ctx, doc, "created")
	return doc, nil
}

// Refresh lists the folder and replaces the document list. On failure the
// previous list is kept and returned along with the error.
func (s *Store) Refresh(ctx context.Context) ([]models.Document, error) {
	entries, err := s.store.Readdir(ctx, s.folder)
	if err != nil {
		s.fail(ctx, OpRefresh, s.folder, "Failed to load documents.", err)
		return s.Documents(), fmt.Errorf("vault: refresh: %w", err)
	}

	docs := make([]models.Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, s.ext) {
			continue
		}
		docs = append(docs, models.Document{Path: s.folder + "/" + e.Name})
	}

	s.mu.Lock()
	s.docs = docs
	if s.session.State == StateIdle {
		s.session.State = StateListed
	}
	out := append([]models.Document(nil), docs...)
	s.mu.Unlock()

	metrics.SetVaultDocuments(len(out))
	metrics.RecordVaultOperation(OpRefresh, metrics.OutcomeSuccess)
	s.logger.Debug("vault: refreshed", slog.Int("documents", len(out)))
	s.changed(Change{Kind: "refreshed"})
	return out, nil
}

// Open reads the document's content and makes it the selected document,
// seeding the edit buffer with the same text.
func (s *Store) Open(ctx context.Context, doc models.Document) (models.Document, error) {
	if err := s.checkPath(doc.Path); err != nil {
		s.reject(ctx, OpOpen, doc.Path, "Failed to open document.", err)
		return models.Document{}, fmt.Errorf("vault: open: %w: %w", apperr.ErrInvalidInput, err)
	}
	if st := s.Session().State; st == StatePendingDelete {
		return models.Document{}, fmt.Errorf("vault: open in state %s: %w", st, apperr.ErrInvalidState)
	}

	data, err := s.store.ReadFile(ctx, doc.Path)
	if err != nil {
		s.fail(ctx, OpOpen, doc.Path, "Failed to open document.", err)
		if errors.Is(err, fs.ErrNotExist) {
			return models.Document{}, fmt.Errorf("vault: open %s: %w", doc.Path, apperr.ErrNotFound)
		}
		return models.Document{}, fmt.Errorf("vault: open %s: %w", doc.Path, err)
	}

	content := string(data)
	opened := models.Document{Path: doc.Path}.WithContent(content, checksum.String(content))

	s.mu.Lock()
	if s.session.State == StatePendingDelete {
		s.mu.Unlock()
		return models.Document{}, fmt.Errorf("vault: open in state %s: %w", StatePendingDelete, apperr.ErrInvalidState)
	}
	sel := opened
	s.session.Selected = &sel
	s.session.EditBuffer = content
	s.session.State = StateOpened
	s.mu.Unlock()

	metrics.RecordVaultOperation(OpOpen, metrics.OutcomeSuccess)
	return opened, nil
}

// SetEditBuffer replaces the edit buffer of the open document.
func (s *Store) SetEditBuffer(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.State.editing() {
		return fmt.Errorf("vault: edit in state %s: %w", s.session.State, apperr.ErrNoSelection)
	}
	s.session.EditBuffer = content
	s.session.State = StateEditing
	return nil
}

// Update overwrites the selected document with newContent, trimmed. On
// success the selection is cleared and the list is synced.
func (s *Store) Update(ctx context.Context, newContent string) (models.Document, error) {
	s.mu.Lock()
	var sel *models.Document
	if s.session.State.editing() && s.session.Selected != nil {
		cp := *s.session.Selected
		sel = &cp
	}
	s.mu.Unlock()

	if sel == nil {
		s.reject(ctx, OpUpdate, "", "No document is open.", apperr.ErrNoSelection)
		return models.Document{}, fmt.Errorf("vault: update: %w", apperr.ErrNoSelection)
	}

	content := strings.TrimSpace(newContent)
	if err := s.store.WriteFile(ctx, sel.Path, []byte(content)); err != nil {
		s.fail(ctx, OpUpdate, sel.Path, "Failed to save the updated document.", err)
		return models.Document{}, fmt.Errorf("vault: update %s: %w", sel.Path, err)
	}

	s.mu.Lock()
	if s.session.Selected != nil && s.session.Selected.Path == sel.Path {
		s.session.Selected = nil
		s.session.EditBuffer = ""
		s.session.State = StateIdle
	}
	s.mu.Unlock()

	s.succeed(ctx, OpUpdate, sel.Path, "Document updated successfully!")
	updated := models.Document{Path: sel.Path}.WithContent(content, checksum.String(content))
	s.afterWrite(ctx, models.Document{Path: sel.Path}, "updated")
	return updated, nil
}

// SaveBuffer is Update with the current edit buffer.
func (s *Store) SaveBuffer(ctx context.Context) (models.Document, error) {
	return s.Update(ctx, s.Session().EditBuffer)
}

// Close dismisses the open document without saving.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.State.editing() {
		return fmt.Errorf("vault: close in state %s: %w", s.session.State, apperr.ErrInvalidState)
	}
	s.session.Selected = nil
	s.session.EditBuffer = ""
	s.session.State = StateIdle
	return nil
}

// RequestDelete marks a listed document for deletion; ConfirmDelete or
// CancelDelete completes the step.
func (s *Store) RequestDelete(doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.State.resting() {
		return fmt.Errorf("vault: delete in state %s: %w", s.session.State, apperr.ErrInvalidState)
	}
	for _, d := range s.docs {
		if d.Path == doc.Path {
			pending := models.Document{Path: d.Path}
			s.session.PendingDelete = &pending
			s.session.State = StatePendingDelete
			return nil
		}
	}
	return fmt.Errorf("vault: delete %s: %w", doc.Path, apperr.ErrNotFound)
}

// CancelDelete drops the pending delete.
func (s *Store) CancelDelete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.PendingDelete == nil {
		return fmt.Errorf("vault: cancel delete: %w", apperr.ErrNoPendingDelete)
	}
	s.session.PendingDelete = nil
	s.session.State = StateListed
	return nil
}

// ConfirmDelete removes the pending document from storage and from the list.
// On failure the delete stays pending.
func (s *Store) ConfirmDelete(ctx context.Context) error {
	s.mu.Lock()
	var pending *models.Document
	if s.session.PendingDelete != nil {
		cp := *s.session.PendingDelete
		pending = &cp
	}
	s.mu.Unlock()

	if pending == nil {
		s.reject(ctx, OpDelete, "", "No document is waiting for deletion.", apperr.ErrNoPendingDelete)
		return fmt.Errorf("vault: delete: %w", apperr.ErrNoPendingDelete)
	}

	if err := s.store.DeleteFile(ctx, pending.Path); err != nil {
		s.fail(ctx, OpDelete, pending.Path, "Failed to delete the document.", err)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("vault: delete %s: %w", pending.Path, apperr.ErrNotFound)
		}
		return fmt.Errorf("vault: delete %s: %w", pending.Path, err)
	}

	s.mu.Lock()
	kept := s.docs[:0:0]
	for _, d := range s.docs {
		if d.Path != pending.Path {
			kept = append(kept, d)
		}
	}
	s.docs = kept
	// A delete requested for another document meanwhile stays pending.
	if s.session.PendingDelete != nil && s.session.PendingDelete.Path == pending.Path {
		s.session.Selected = nil
		s.session.EditBuffer = ""
		s.session.PendingDelete = nil
		s.session.State = StateIdle
	}
	n := len(kept)
	s.mu.Unlock()

	metrics.SetVaultDocuments(n)
	s.succeed(ctx, OpDelete, pending.Path, "Document deleted.")
	s.changed(Change{Kind: "deleted", Path: pending.Path})
	return nil
}

// checkPath accepts only paths of managed documents in the vault folder.
func (s *Store) checkPath(p string) error {
	if path.Dir(p) != s.folder || !strings.HasSuffix(p, s.ext) {
		return fmt.Errorf("%q is not a document in %s", p, s.folder)
	}
	return safeName(strings.TrimSuffix(path.Base(p), s.ext))
}

// afterWrite brings the list in line with a successful write.
func (s *Store) afterWrite(ctx context.Context, doc models.Document, kind string) {
	if s.syncMode == SyncPatch {
		s.mu.Lock()
		found := false
		for _, d := range s.docs {
			if d.Path == doc.Path {
				found = true
				break
			}
		}
		if !found {
			s.docs = append(s.docs, models.Document{Path: doc.Path})
			sort.Slice(s.docs, func(i, j int) bool { return s.docs[i].Path < s.docs[j].Path })
		}
		if s.session.State == StateIdle {
			s.session.State = StateListed
		}
		n := len(s.docs)
		s.mu.Unlock()
		metrics.SetVaultDocuments(n)
	} else {
		// Errors are logged and notified inside Refresh.
		_, _ = s.Refresh(ctx)
	}
	s.changed(Change{Kind: kind, Path: doc.Path})
}

func (s *Store) changed(c Change) {
	if s.onChange != nil {
		s.onChange(c)
	}
}

func (s *Store) succeed(ctx context.Context, op, p, msg string) {
	metrics.RecordVaultOperation(op, metrics.OutcomeSuccess)
	s.notifier.Notify(ctx, notify.Notification{Kind: notify.KindSuccess, Op: op, Path: p, Message: msg})
}

func (s *Store) fail(ctx context.Context, op, p, msg string, err error) {
	metrics.RecordVaultOperation(op, metrics.OutcomeFailure)
	s.logger.Error("vault: "+op+" failed", slog.String("path", p), slog.String("error", err.Error()))
	s.notifier.Notify(ctx, notify.Notification{Kind: notify.KindFailure, Op: op, Path: p, Message: msg, Err: err})
}

func (s *Store) reject(ctx context.Context, op, p, msg string, err error) {
	metrics.RecordVaultOperation(op, metrics.OutcomeValidation)
	s.notifier.Notify(ctx, notify.Notification{Kind: notify.KindValidation, Op: op, Path: p, Message: msg, Err: err})
}
