package repository

import "errors"

// Sentinel errors returned by the session/trainer repositories. Any other error is a
// storage failure.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrTrainerNotAssigned = errors.New("trainer not assigned to session")
)
