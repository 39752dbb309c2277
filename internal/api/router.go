package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safevault/safevault/internal/location"
	"github.com/safevault/safevault/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// reporter, if non-nil, accepts device positions at POST /location/report.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(store *vault.Store, tracker *location.Tracker, reporter *location.ReportedLocator, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(store, tracker, reporter)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Post("/documents/refresh", h.RefreshDocuments)

	// Editing session.
	r.Get("/session", h.GetSession)
	r.Post("/session/open", h.OpenDocument)
	r.Put("/session/buffer", h.SetBuffer)
	r.Post("/session/save", h.SaveDocument)
	r.Post("/session/close", h.CloseDocument)
	r.Post("/session/delete", h.RequestDelete)
	r.Post("/session/delete/confirm", h.ConfirmDelete)
	r.Post("/session/delete/cancel", h.CancelDelete)

	// Live location.
	r.Get("/locations", h.ListLocations)
	r.Post("/locations", h.SaveLocation)
	r.Post("/locations/{id}/share", h.ShareSavedLocation)
	r.Post("/locations/{id}/delete", h.RequestLocationDelete)
	r.Post("/locations/delete/confirm", h.ConfirmLocationDelete)
	r.Post("/locations/delete/cancel", h.CancelLocationDelete)
	r.Post("/location/locate", h.Locate)
	r.Post("/location/report", h.ReportLocation)
	r.Post("/location/share", h.ShareCurrentLocation)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
