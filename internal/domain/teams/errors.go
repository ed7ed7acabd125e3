package teams

import "errors"

// ErrUnknownTeam reports an operation against a team id that is not in
// the store.
var ErrUnknownTeam = errors.New("unknown team")
