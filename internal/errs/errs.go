package errs

import "errors"

// Sentinel errors mapped to HTTP status codes in handlers.
var (
	ErrSessionNotFound = errors.New("session not found")
)
