// Package service holds the workflow engine: token issuance and validation,
// trip milestone transitions, the MS session flow and notification fan-out.
// Guard checks run inside the store's key lock, so racing transitions on one
// trip or session can never both pass the same precondition.
package service

import "errors"

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrValidation is returned when a required request field is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied is returned when the acting user lacks the
	// capability flag an administrative operation requires
	ErrPermissionDenied = errors.New("permission denied")
)
