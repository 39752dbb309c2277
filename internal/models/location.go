package models

import "time"

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SavedLocation is a named position kept in the saved-locations list.
type SavedLocation struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	Date    string    `json:"date"`
	SavedAt time.Time `json:"saved_at"`
}
