// Package abilitylog converts the game's raw ability-event feed into a
// clean, bounded, persisted activity log. Events arrive possibly
// duplicated and out of order across pets; per-pet watermarks and a
// global cutoff decide which ones make it into the log.
package abilitylog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/pkg/logger"
	"github.com/okian/menagerie/pkg/metrics"
)

const (
	defaultCapacity   = 500
	defaultCutoffSkew = 1500 * time.Millisecond

	// snapshotVersion tags the persisted payload shape.
	snapshotVersion = 1

	// noiseEpsilon is the magnitude below which an event is treated as
	// zero and not worth logging.
	noiseEpsilon = 1e-9
)

// Snapshot is the persisted form of the log.
type Snapshot struct {
	Version int                     `json:"version"`
	Cutoff  int64                   `json:"cutoff"`
	Entries []model.AbilityLogEntry `json:"entries"`
}

// Persister is the durable backend for the log snapshot. Missing state
// on first run is reported as ok=false, not an error.
type Persister interface {
	SaveAbilityLog(ctx context.Context, snap Snapshot) error
	LoadAbilityLog(ctx context.Context) (Snapshot, bool, error)
}

// Metadata resolves a pet id to its current record, used to annotate
// entries with species and nickname and to backfill a missing hunger
// percentage.
type Metadata interface {
	Pet(id string) (model.Pet, bool)
}

// Ingester deduplicates, filters, formats, and stores ability events.
type Ingester struct {
	mu         sync.Mutex
	capacity   int
	skewMs     int64
	now        func() time.Time
	logger     logger.Logger
	registry   *Registry
	persist    Persister
	meta       Metadata
	watermarks map[string]int64
	cutoff     int64
	entries    []model.AbilityLogEntry
	watchers   []func([]model.AbilityLogEntry)
}

// Option applies a configuration option to the Ingester.
type Option func(*Ingester)

// WithCapacity caps the number of retained log entries.
func WithCapacity(n int) Option {
	return func(i *Ingester) {
		if n > 0 {
			i.capacity = n
		}
	}
}

// WithCutoffSkew sets the tolerance subtracted from the cutoff when
// rejecting events that predate the last clear.
func WithCutoffSkew(d time.Duration) Option {
	return func(i *Ingester) {
		if d >= 0 {
			i.skewMs = d.Milliseconds()
		}
	}
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) {
		if now != nil {
			i.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(i *Ingester) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithRegistry sets the ability formatter registry.
func WithRegistry(r *Registry) Option {
	return func(i *Ingester) {
		if r != nil {
			i.registry = r
		}
	}
}

// WithPersister sets the durable backend. Without one the log is
// memory-only.
func WithPersister(p Persister) Option {
	return func(i *Ingester) {
		i.persist = p
	}
}

// WithMetadata sets the pet metadata lookup used for entry annotation
// and hunger backfill.
func WithMetadata(m Metadata) Option {
	return func(i *Ingester) {
		i.meta = m
	}
}

// New constructs an Ingester. Call Restore before feeding it events to
// pick up persisted state.
func New(opts ...Option) *Ingester {
	i := &Ingester{
		capacity:   defaultCapacity,
		skewMs:     defaultCutoffSkew.Milliseconds(),
		now:        time.Now,
		logger:     logger.Get().Named("abilitylog"),
		registry:   NewRegistry(),
		watermarks: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Registry exposes the formatter registry, e.g. for ability-name lookups
// in team search.
func (i *Ingester) Registry() *Registry {
	return i.registry
}

// Ingest processes one raw event and reports whether it was logged.
// Watermarks advance past every new event, logged or filtered, so a
// replay of the same event is always rejected as stale.
func (i *Ingester) Ingest(ctx context.Context, ev model.AbilityEvent) bool {
	i.mu.Lock()

	if ev.PerformedAt <= i.watermarks[ev.PetID] {
		i.mu.Unlock()
		metrics.RecordAbilityEventStale()
		return false
	}
	i.watermarks[ev.PetID] = ev.PerformedAt

	if i.cutoff > 0 && ev.PerformedAt < i.cutoff-i.skewMs {
		i.mu.Unlock()
		metrics.RecordAbilityEventCutoff()
		return false
	}

	var pet model.Pet
	var havePet bool
	if i.meta != nil {
		pet, havePet = i.meta.Pet(ev.PetID)
	}
	if ev.Magnitude == nil && havePet {
		hunger := pet.Hunger
		ev.Magnitude = &hunger
	}
	if ev.Magnitude != nil && *ev.Magnitude <= noiseEpsilon {
		i.mu.Unlock()
		metrics.RecordAbilityEventNoise()
		return false
	}

	name, detail := i.registry.Format(ev)
	entry := model.AbilityLogEntry{
		PetID:       ev.PetID,
		AbilityID:   ev.AbilityID,
		AbilityName: name,
		Detail:      detail,
		PerformedAt: ev.PerformedAt,
		DisplayTime: time.UnixMilli(ev.PerformedAt).Format("15:04:05"),
	}
	if havePet {
		entry.Species = pet.Species
		entry.Nickname = pet.DisplayName()
	}

	i.entries = append(i.entries, entry)
	for len(i.entries) > i.capacity {
		i.entries = i.entries[1:]
		metrics.RecordAbilityLogEviction()
	}
	metrics.RecordAbilityEventAccepted()
	metrics.UpdateAbilityLogSize(len(i.entries))

	snap := i.snapshotLocked()
	watchers := slices.Clone(i.watchers)
	i.mu.Unlock()

	i.save(ctx, snap)
	for _, fn := range watchers {
		fn(snap.Entries)
	}
	return true
}

// Entries returns the current log in insertion order. A non-empty
// filter keeps entries whose pet id matches exactly or whose fields
// contain the filter as a case-insensitive substring.
func (i *Ingester) Entries(filter string) []model.AbilityLogEntry {
	i.mu.Lock()
	entries := slices.Clone(i.entries)
	i.mu.Unlock()

	if filter == "" {
		return entries
	}
	needle := strings.ToLower(strings.TrimSpace(filter))
	out := make([]model.AbilityLogEntry, 0, len(entries))
	for _, e := range entries {
		if e.PetID == filter || entryMatches(e, needle) {
			out = append(out, e)
		}
	}
	return out
}

func entryMatches(e model.AbilityLogEntry, needle string) bool {
	for _, field := range []string{e.PetID, e.Species, e.Nickname, e.AbilityID, e.AbilityName, e.Detail} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// OnChange registers a callback receiving the full log after every
// accepted event and every clear.
func (i *Ingester) OnChange(fn func([]model.AbilityLogEntry)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.watchers = append(i.watchers, fn)
}

// Clear empties the log, resets all watermarks, and moves the cutoff to
// now so late deliveries of pre-clear events are dropped.
func (i *Ingester) Clear(ctx context.Context) {
	i.mu.Lock()
	i.entries = nil
	i.watermarks = make(map[string]int64)
	i.cutoff = i.now().UnixMilli()
	metrics.UpdateAbilityLogSize(0)
	snap := i.snapshotLocked()
	watchers := slices.Clone(i.watchers)
	i.mu.Unlock()

	i.save(ctx, snap)
	for _, fn := range watchers {
		fn(snap.Entries)
	}
}

// Restore loads the persisted snapshot: entries are sorted by time and
// truncated to the most recent capacity, watermarks rebuilt as each
// pet's max seen timestamp, and a positive cutoff carried over. Corrupt
// or missing state falls back to empty defaults.
func (i *Ingester) Restore(ctx context.Context) {
	if i.persist == nil {
		return
	}
	snap, ok, err := i.persist.LoadAbilityLog(ctx)
	if err != nil {
		i.logger.Warn(ctx, "restoring ability log failed; starting empty", logger.Error(err))
		return
	}
	if !ok {
		return
	}

	entries := snap.Entries
	slices.SortStableFunc(entries, func(a, b model.AbilityLogEntry) int {
		switch {
		case a.PerformedAt < b.PerformedAt:
			return -1
		case a.PerformedAt > b.PerformedAt:
			return 1
		default:
			return 0
		}
	})
	if len(entries) > i.capacity {
		entries = entries[len(entries)-i.capacity:]
	}

	i.mu.Lock()
	i.entries = entries
	i.watermarks = make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.PerformedAt > i.watermarks[e.PetID] {
			i.watermarks[e.PetID] = e.PerformedAt
		}
	}
	if snap.Cutoff > 0 {
		i.cutoff = snap.Cutoff
	}
	metrics.UpdateAbilityLogSize(len(i.entries))
	i.mu.Unlock()
}

func (i *Ingester) snapshotLocked() Snapshot {
	return Snapshot{
		Version: snapshotVersion,
		Cutoff:  i.cutoff,
		Entries: slices.Clone(i.entries),
	}
}

func (i *Ingester) save(ctx context.Context, snap Snapshot) {
	if i.persist == nil {
		return
	}
	if err := i.persist.SaveAbilityLog(ctx, snap); err != nil {
		i.logger.Warn(ctx, "persisting ability log failed", logger.Error(err))
	}
}
