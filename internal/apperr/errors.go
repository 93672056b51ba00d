// Package apperr defines the error taxonomy shared by services and handlers.
// Callers match with errors.Is; services wrap these sentinels with context.
package apperr

import "errors"

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced post, asset or account that doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a status transition whose precondition no longer
	// holds. Expected under concurrent or duplicate webhook delivery.
	ErrConflict = errors.New("status conflict")

	// ErrExternalAPI marks an upstream platform or storage provider failure.
	ErrExternalAPI = errors.New("external api failure")

	// ErrStorage marks a media storage write failure.
	ErrStorage = errors.New("storage failure")
)
