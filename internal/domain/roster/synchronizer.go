package roster

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/pkg/logger"
	"github.com/okian/menagerie/pkg/metrics"
)

// feedState tracks a source's subscription lifecycle. The explicit
// Starting state closes the double-subscribe window between concurrent
// first calls.
type feedState int

const (
	feedNotStarted feedState = iota
	feedStarting
	feedStarted
)

// source is one feed's private cache inside the synchronizer.
type source struct {
	name     string
	feed     Feed
	suppress bool
	state    feedState
	sigs     map[string]string
	pets     []model.Pet
	unsub    func()
}

// Synchronizer merges the three pet feeds into one deduplicated roster.
// Priority on id collisions: active > inventory > hutch.
type Synchronizer struct {
	mu       sync.Mutex
	active   *source
	inv      *source
	hutch    *source
	space    CountFeed
	merged   []model.Pet
	watchers []func([]model.Pet)
	logger   logger.Logger
}

// Option applies a configuration option to the Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithUniformSuppression applies signature suppression to the hutch feed
// as well. The game's own menu only suppresses the active and inventory
// feeds; the asymmetry is kept as the default for compatibility.
func WithUniformSuppression(on bool) Option {
	return func(s *Synchronizer) {
		s.hutch.suppress = on
	}
}

// New constructs a Synchronizer over the given feeds. Subscriptions are
// not started until the first Pets call.
func New(feeds Feeds, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		active: &source{name: feedActive, feed: feeds.Active, suppress: true},
		inv:    &source{name: feedInventory, feed: feeds.Inventory, suppress: true},
		hutch:  &source{name: feedHutch, feed: feeds.Hutch},
		space:  feeds.HutchSpace,
		logger: logger.Get().Named("roster"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pets returns the current merged roster, lazily starting all feed
// subscriptions on first call. Feed failures keep prior cached state and
// are never propagated to the caller.
func (s *Synchronizer) Pets(ctx context.Context) []model.Pet {
	s.ensureStarted(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.merged)
}

// OnChange registers a callback invoked with the full merged roster after
// every accepted rebuild.
func (s *Synchronizer) OnChange(fn func([]model.Pet)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// HutchFreeSpace reads the live hutch free-capacity counter.
func (s *Synchronizer) HutchFreeSpace(ctx context.Context) (int, error) {
	n, err := s.space.Get(ctx)
	if err != nil {
		return 0, err
	}
	metrics.UpdateHutchFreeSpace(n)
	return n, nil
}

// ActivePets returns the active feed's cached snapshot.
func (s *Synchronizer) ActivePets(ctx context.Context) []model.Pet {
	s.ensureStarted(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.active.pets)
}

// InventoryPets returns the inventory feed's cached snapshot.
func (s *Synchronizer) InventoryPets(ctx context.Context) []model.Pet {
	s.ensureStarted(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.inv.pets)
}

// HutchPets returns the hutch feed's cached snapshot.
func (s *Synchronizer) HutchPets(ctx context.Context) []model.Pet {
	s.ensureStarted(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.hutch.pets)
}

// Close unsubscribes all feed watches.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range s.sources() {
		if src.unsub != nil {
			src.unsub()
			src.unsub = nil
		}
		src.state = feedNotStarted
	}
}

func (s *Synchronizer) sources() []*source {
	return []*source{s.active, s.inv, s.hutch}
}

// ensureStarted transitions every not-started source through Starting to
// Started exactly once, then performs the initial fetch and rebuild.
func (s *Synchronizer) ensureStarted(ctx context.Context) {
	s.mu.Lock()
	var starting []*source
	for _, src := range s.sources() {
		if src.state == feedNotStarted {
			src.state = feedStarting
			starting = append(starting, src)
		}
	}
	s.mu.Unlock()

	if len(starting) == 0 {
		return
	}

	for _, src := range starting {
		s.startSource(ctx, src)
	}
	s.rebuild(ctx, "initial")
}

// startSource fetches the initial snapshot and subscribes to change
// notifications. On any failure the source keeps whatever it had.
func (s *Synchronizer) startSource(ctx context.Context, src *source) {
	defer func() {
		s.mu.Lock()
		src.state = feedStarted
		s.mu.Unlock()
	}()

	pets, sigs, err := s.fetch(ctx, src)
	if err != nil {
		s.logger.Warn(ctx, "initial feed fetch failed; keeping prior state",
			logger.String("feed", src.name), logger.Error(err))
		metrics.RecordRosterFeedError(src.name)
	} else {
		s.mu.Lock()
		src.pets = pets
		src.sigs = sigs
		s.mu.Unlock()
	}

	name := src.name
	unsub, err := src.feed.Watch(ctx, func() {
		s.refresh(ctx, src, name)
	})
	if err != nil {
		s.logger.Warn(ctx, "feed subscribe failed; live updates disabled",
			logger.String("feed", src.name), logger.Error(err))
		metrics.RecordRosterFeedError(src.name)
		return
	}
	s.mu.Lock()
	src.unsub = unsub
	s.mu.Unlock()
}

// fetch gets and normalizes a snapshot, returning its signature map too.
func (s *Synchronizer) fetch(ctx context.Context, src *source) ([]model.Pet, map[string]string, error) {
	raws, err := src.feed.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	pets := make([]model.Pet, 0, len(raws))
	for _, r := range raws {
		pets = append(pets, r.Normalize())
	}
	return pets, signatureMap(pets), nil
}

// refresh handles one change notification from a feed: refetch, compare
// signatures when the feed is suppressed, and rebuild on real change.
func (s *Synchronizer) refresh(ctx context.Context, src *source, name string) {
	pets, sigs, err := s.fetch(ctx, src)
	if err != nil {
		s.logger.Warn(ctx, "feed refresh failed; keeping prior state",
			logger.String("feed", name), logger.Error(err))
		metrics.RecordRosterFeedError(name)
		return
	}

	s.mu.Lock()
	if src.suppress && signaturesEqual(src.sigs, sigs) {
		s.mu.Unlock()
		metrics.RecordRosterSuppressed(name)
		return
	}
	src.pets = pets
	src.sigs = sigs
	s.mu.Unlock()

	s.rebuild(ctx, name)
}

// rebuild recomputes the merged roster and notifies watchers.
func (s *Synchronizer) rebuild(ctx context.Context, trigger string) {
	s.mu.Lock()
	s.merged = mergeByPriority(s.hutch.pets, s.inv.pets, s.active.pets)
	merged := slices.Clone(s.merged)
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	metrics.RecordRosterRebuild(trigger)
	metrics.UpdateMergedPets(len(merged))
	s.logger.Debug(ctx, "roster rebuilt",
		logger.String("trigger", trigger), logger.Int("pets", len(merged)))

	for _, fn := range watchers {
		fn(merged)
	}
}
