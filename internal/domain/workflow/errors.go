package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted in the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every candidate transition's guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrUnknownState is returned when a machine is built with an unregistered state
	ErrUnknownState = errors.New("unknown state")
)
