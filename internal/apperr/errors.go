// Package apperr holds the sentinel errors shared by the vault, the location
// tracker and the outer surfaces that map them to responses.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput marks validation failures detected before any storage call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState is returned when an operation is not allowed in the
	// current session state.
	ErrInvalidState    = errors.New("invalid session state")
	ErrNoSelection     = errors.New("no document selected")
	ErrNoPendingDelete = errors.New("no pending delete")
	ErrNoPosition      = errors.New("no current position")
)
