package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrClosed    = errors.New("store is closed")
	ErrEmptyPath = errors.New("storage path is required")
)
