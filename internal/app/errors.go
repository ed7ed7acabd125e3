package service

import "errors"

// Sentinel errors for service lifecycle misuse.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoGame     = errors.New("no game connection configured")
)
