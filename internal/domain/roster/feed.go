// Package roster merges the game's three asynchronous pet feeds into one
// consistent, deduplicated view and suppresses redundant rebuilds.
package roster

import (
	"context"

	"github.com/okian/menagerie/internal/domain/model"
)

// Feed is one external pet source. Watch registers a change callback and
// returns an unsubscribe func; implementations deliver callbacks on their
// own goroutine.
type Feed interface {
	Get(ctx context.Context) ([]model.RawPet, error)
	Watch(ctx context.Context, fn func()) (func(), error)
}

// CountFeed exposes a single integer, used for hutch free-space arithmetic.
type CountFeed interface {
	Get(ctx context.Context) (int, error)
	Watch(ctx context.Context, fn func()) (func(), error)
}

// Feeds bundles the three pet sources plus the hutch space counter.
type Feeds struct {
	Active     Feed
	Inventory  Feed
	Hutch      Feed
	HutchSpace CountFeed
}

// Feed names used in logs and metrics labels.
const (
	feedActive    = "active"
	feedInventory = "inventory"
	feedHutch     = "hutch"
)
