package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safevault/safevault/internal/apperr"
	"github.com/safevault/safevault/internal/location"
	"github.com/safevault/safevault/internal/models"
)

func (h *Handler) locationList() LocationListResponse {
	resp := LocationListResponse{Locations: h.tracker.Saved()}
	if resp.Locations == nil {
		resp.Locations = []models.SavedLocation{}
	}
	if cur, ok := h.tracker.Current(); ok {
		resp.Current = toLocationResponse(cur)
	}
	if p, ok := h.tracker.Pending(); ok {
		resp.PendingDelete = &p
	}
	return resp
}

func toLocationResponse(c models.Coordinates) *LocationResponse {
	return &LocationResponse{Latitude: c.Latitude, Longitude: c.Longitude, URL: location.MapsURL(c)}
}

// ListLocations handles GET /api/locations.
//
//	@Summary		Saved locations and the current position
//	@Tags			locations
//	@Produce		json
//	@Success		200		{object}	LocationListResponse
//	@Security		BearerAuth
//	@Router			/locations [get]
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.locationList())
}

// Locate handles POST /api/location/locate.
//
//	@Summary		Refresh the current position
//	@Tags			locations
//	@Produce		json
//	@Success		200		{object}	LocationResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/location/locate [post]
func (h *Handler) Locate(w http.ResponseWriter, r *http.Request) {
	c, err := h.tracker.Locate(r.Context())
	if err != nil {
		writeError(w, "locate", err)
		return
	}
	writeJSON(w, http.StatusOK, toLocationResponse(c))
}

// ReportLocation handles POST /api/location/report.
//
//	@Summary		Push the device position
//	@Tags			locations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReportLocationRequest	true	"Position"
//	@Success		200		{object}	LocationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/location/report [post]
func (h *Handler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	if h.reporter == nil {
		writeError(w, "report location", fmt.Errorf("position reports are disabled: %w", apperr.ErrInvalidState))
		return
	}
	var req ReportLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := models.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := h.reporter.Report(c); err != nil {
		writeError(w, "report location", err)
		return
	}
	got, err := h.tracker.Locate(r.Context())
	if err != nil {
		writeError(w, "report location", err)
		return
	}
	writeJSON(w, http.StatusOK, toLocationResponse(got))
}

// ShareCurrentLocation handles POST /api/location/share.
//
//	@Summary		Share the current position
//	@Tags			locations
//	@Success		204
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/location/share [post]
func (h *Handler) ShareCurrentLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.ShareCurrent(r.Context()); err != nil {
		writeError(w, "share location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveLocation handles POST /api/locations.
//
//	@Summary		Save the current position under a name
//	@Tags			locations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveLocationRequest	true	"Location name"
//	@Success		201		{object}	models.SavedLocation
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/locations [post]
func (h *Handler) SaveLocation(w http.ResponseWriter, r *http.Request) {
	var req SaveLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loc, err := h.tracker.Save(r.Context(), req.Name)
	if err != nil {
		writeError(w, "save location", err)
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}

// ShareSavedLocation handles POST /api/locations/{id}/share.
//
//	@Summary		Share a saved location
//	@Tags			locations
//	@Param			id	path	string	true	"Location ID"
//	@Success		204
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/locations/{id}/share [post]
func (h *Handler) ShareSavedLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.ShareSaved(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "share location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestLocationDelete handles POST /api/locations/{id}/delete.
//
//	@Summary		Ask to delete a saved location
//	@Tags			locations
//	@Produce		json
//	@Param			id	path	string	true	"Location ID"
//	@Success		200		{object}	LocationListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/locations/{id}/delete [post]
func (h *Handler) RequestLocationDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.RequestDelete(chi.URLParam(r, "id")); err != nil {
		writeError(w, "request location delete", err)
		return
	}
	writeJSON(w, http.StatusOK, h.locationList())
}

// ConfirmLocationDelete handles POST /api/locations/delete/confirm.
//
//	@Summary		Confirm the pending location delete
//	@Tags			locations
//	@Produce		json
//	@Success		200		{object}	LocationListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/locations/delete/confirm [post]
func (h *Handler) ConfirmLocationDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.ConfirmDelete(r.Context()); err != nil {
		writeError(w, "confirm location delete", err)
		return
	}
	writeJSON(w, http.StatusOK, h.locationList())
}

// CancelLocationDelete handles POST /api/locations/delete/cancel.
//
//	@Summary		Cancel the pending location delete
//	@Tags			locations
//	@Produce		json
//	@Success		200		{object}	LocationListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/locations/delete/cancel [post]
func (h *Handler) CancelLocationDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.CancelDelete(); err != nil {
		writeError(w, "cancel location delete", err)
		return
	}
	writeJSON(w, http.StatusOK, h.locationList())
}
