package api

import (
	"net/http"
	"strconv"

	"github.com/safevault/safevault/internal/apperr"
	"github.com/safevault/safevault/internal/checksum"
	"github.com/safevault/safevault/internal/location"
	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/vault"
)

// Handler holds API route handlers.
type Handler struct {
	store    *vault.Store
	tracker  *location.Tracker
	reporter *location.ReportedLocator
}

// NewHandler creates a new Handler.
func NewHandler(store *vault.Store, tracker *location.Tracker, reporter *location.ReportedLocator) *Handler {
	return &Handler{store: store, tracker: tracker, reporter: reporter}
}

func (h *Handler) documentList() DocumentListResponse {
	docs := h.store.Documents()
	if docs == nil {
		docs = []models.Document{}
	}
	return DocumentListResponse{Documents: docs, Total: len(docs)}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List vault documents
//	@Tags			documents
//	@Produce		json
//	@Param			refresh	query		bool	false	"Re-list the folder first"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if _, err := h.store.Refresh(r.Context()); err != nil {
			writeError(w, "list documents", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.documentList())
}

// RefreshDocuments handles POST /api/documents/refresh.
//
//	@Summary		Re-list the vault folder
//	@Tags			documents
//	@Produce		json
//	@Success		200		{object}	DocumentListResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/refresh [post]
func (h *Handler) RefreshDocuments(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Refresh(r.Context()); err != nil {
		writeError(w, "refresh documents", err)
		return
	}
	writeJSON(w, http.StatusOK, h.documentList())
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	models.Document
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.store.Create(r.Context(), req.Name, req.Content)
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetSession handles GET /api/session.
//
//	@Summary		Current editing session
//	@Tags			session
//	@Produce		json
//	@Success		200		{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Session())
}

// OpenDocument handles POST /api/session/open.
//
//	@Summary		Open a document for editing
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"Document to open"
//	@Success		200		{object}	models.Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/open [post]
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.store.Open(r.Context(), models.Document{Path: req.Path})
	if err != nil {
		writeError(w, "open document", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// SetBuffer handles PUT /api/session/buffer.
//
//	@Summary		Replace the edit buffer
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BufferRequest	true	"Buffer content"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/buffer [put]
func (h *Handler) SetBuffer(w http.ResponseWriter, r *http.Request) {
	var req BufferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.SetEditBuffer(req.Content); err != nil {
		writeError(w, "set buffer", err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Session())
}

// SaveDocument handles POST /api/session/save.
//
//	@Summary		Save the open document
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string		false	"ETag returned by open"
//	@Param			body	body		SaveRequest	false	"New content; the edit buffer when omitted"
//	@Success		200		{object}	models.Document
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/save [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	// If-Match only guards against saving over a different opened version
	// than the one the client saw.
	if tag := r.Header.Get("If-Match"); tag != "" {
		sel := h.store.Session().Selected
		if sel != nil && checksum.FromETag(tag) != sel.Checksum {
			writeError(w, "save document", apperr.ErrConflict)
			return
		}
	}

	var (
		doc models.Document
		err error
	)
	if req.Content != nil {
		doc, err = h.store.Update(r.Context(), *req.Content)
	} else {
		doc, err = h.store.SaveBuffer(r.Context())
	}
	if err != nil {
		writeError(w, "save document", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// CloseDocument handles POST /api/session/close.
//
//	@Summary		Close the open document without saving
//	@Tags			session
//	@Produce		json
//	@Success		200		{object}	SessionResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/close [post]
func (h *Handler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Close(); err != nil {
		writeError(w, "close document", err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Session())
}

// RequestDelete handles POST /api/session/delete.
//
//	@Summary		Ask to delete a listed document
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"Document to delete"
//	@Success		200		{object}	SessionResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/delete [post]
func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.RequestDelete(models.Document{Path: req.Path}); err != nil {
		writeError(w, "request delete", err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Session())
}

// ConfirmDelete handles POST /api/session/delete/confirm.
//
//	@Summary		Confirm the pending delete
//	@Tags			session
//	@Produce		json
//	@Success		200		{object}	DocumentListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/delete/confirm [post]
func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ConfirmDelete(r.Context()); err != nil {
		writeError(w, "confirm delete", err)
		return
	}
	writeJSON(w, http.StatusOK, h.documentList())
}

// CancelDelete handles POST /api/session/delete/cancel.
//
//	@Summary		Cancel the pending delete
//	@Tags			session
//	@Produce		json
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/delete/cancel [post]
func (h *Handler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.CancelDelete(); err != nil {
		writeError(w, "cancel delete", err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Session())
}
