package location

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/safevault/safevault/internal/apperr"
	"github.com/safevault/safevault/internal/models"
)

// Locator yields the device's current position.
type Locator interface {
	Locate(ctx context.Context) (models.Coordinates, error)
}

// MapsURL returns the Google Maps link for c.
func MapsURL(c models.Coordinates) string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// ValidateCoordinates checks that c is a position on Earth.
func ValidateCoordinates(c models.Coordinates) error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&c.Longitude, validation.Min(-180.0), validation.Max(180.0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	return nil
}

// StaticLocator always reports the same position.
type StaticLocator struct {
	Position models.Coordinates
}

// Locate implements Locator.
func (s StaticLocator) Locate(context.Context) (models.Coordinates, error) {
	return s.Position, nil
}

// ReportedLocator returns the last position pushed by the device.
type ReportedLocator struct {
	mu  sync.Mutex
	pos *models.Coordinates
}

// Report records a new position.
func (r *ReportedLocator) Report(c models.Coordinates) error {
	if err := ValidateCoordinates(c); err != nil {
		return err
	}
	r.mu.Lock()
	r.pos = &c
	r.mu.Unlock()
	return nil
}

// Locate implements Locator. It fails with apperr.ErrNoPosition until a
// position has been reported.
func (r *ReportedLocator) Locate(context.Context) (models.Coordinates, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos == nil {
		return models.Coordinates{}, apperr.ErrNoPosition
	}
	return *r.pos, nil
}
