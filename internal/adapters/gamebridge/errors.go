package gamebridge

import "errors"

// Sentinel kinds for bridge errors.
var (
	ErrNotConnected = errors.New("bridge is not connected")
	ErrCallTimeout  = errors.New("game call timed out")
	ErrRemote       = errors.New("game rejected the call")
)
