package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist or already expired.
	// Callers must treat it as "no record", never as a store failure.
	ErrNotFound = errors.New("repository: not found")
)
