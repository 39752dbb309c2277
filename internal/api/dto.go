package api

import (
	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/vault"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Name    string `json:"name" example:"groceries" validate:"required"`
	Content string `json:"content" example:"milk, eggs" validate:"required"`
}

// PathRequest names a listed document.
type PathRequest struct {
	Path string `json:"path" example:"MyVaultDocuments/groceries.txt" validate:"required"`
}

// BufferRequest replaces the edit buffer.
type BufferRequest struct {
	Content string `json:"content" example:"milk, eggs, bread"`
}

// SaveRequest saves the open document. Without content the edit buffer is saved.
type SaveRequest struct {
	Content *string `json:"content,omitempty" example:"milk, eggs, bread"`
}

// DocumentListResponse wraps the document list.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents" validate:"required"`
	Total     int               `json:"total" example:"3" validate:"required"`
}

// SessionResponse is the editing session snapshot.
type SessionResponse = vault.Session

// ReportLocationRequest carries a position pushed by the device.
type ReportLocationRequest struct {
	Latitude  float64 `json:"latitude" example:"37.422"`
	Longitude float64 `json:"longitude" example:"-122.084"`
}

// SaveLocationRequest names the current position.
type SaveLocationRequest struct {
	Name string `json:"name" example:"Office" validate:"required"`
}

// LocationResponse is the current position with its maps link.
type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	URL       string  `json:"url" example:"https://www.google.com/maps?q=37.422,-122.084"`
}

// LocationListResponse wraps the saved locations.
type LocationListResponse struct {
	Locations     []models.SavedLocation `json:"locations" validate:"required"`
	Current       *LocationResponse      `json:"current,omitempty"`
	PendingDelete *models.SavedLocation  `json:"pending_delete,omitempty"`
}
