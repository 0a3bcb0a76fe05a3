// Package common defines shared constants and sentinel errors used across
// the local store, sync engine and scoring layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound          = errors.New("not found")
	ErrUnknownCollection = errors.New("unknown collection")

	// Validation errors (rejected input, malformed payloads).
	ErrValidation = errors.New("validation error")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Sync flow control.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrOffline        = errors.New("remote store unavailable")

	// Geolocation provider failures.
	ErrLocationPermissionDenied = errors.New("location permission denied")
	ErrLocationUnavailable      = errors.New("location unavailable")
	ErrLocationTimeout          = errors.New("location request timed out")
)
