// Package repository provides the namespaced key-value store backing
// team and ability-log persistence, with a SQLite implementation for
// the daemon and an in-memory one for tests.
package repository

import "context"

// Store is a namespaced key-value store for small JSON payloads.
// Missing keys are reported as ok=false, never as an error.
type Store interface {
	Get(ctx context.Context, ns, key string) ([]byte, bool, error)
	Put(ctx context.Context, ns, key string, value []byte) error
	Delete(ctx context.Context, ns, key string) error
	// List returns every key/value pair in a namespace.
	List(ctx context.Context, ns string) (map[string][]byte, error)
	Close() error
}

// Namespaces used by the persistence bridges.
const (
	nsTeams      = "teams"
	nsTeamSearch = "team_search"
	nsMeta       = "meta"
	nsAbilityLog = "ability_log"
)
