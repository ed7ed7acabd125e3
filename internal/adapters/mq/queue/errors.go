package queue

import "errors"

// ErrBusy reports that the queue refused a request, either because it
// is at capacity or because it has been closed.
var ErrBusy = errors.New("equip queue busy")
