package app

import "errors"

// Sentinel errors mapped to HTTP statuses at the server edge.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDownloadLimit    = errors.New("Download limit exceeded (10 per day)")
	ErrStoreUnavailable = errors.New("store unavailable")
)
