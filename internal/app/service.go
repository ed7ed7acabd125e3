// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	equipqueue "github.com/okian/menagerie/internal/adapters/mq/queue"
	"github.com/okian/menagerie/internal/adapters/mq/worker"
	repository "github.com/okian/menagerie/internal/adapters/repository"
	"github.com/okian/menagerie/internal/domain/abilitylog"
	"github.com/okian/menagerie/internal/domain/equip"
	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/internal/domain/roster"
	"github.com/okian/menagerie/internal/domain/teams"
	"github.com/okian/menagerie/pkg/logger"
	"github.com/okian/menagerie/pkg/metrics"
)

// Game is the full surface the service needs from the game connection.
// gamebridge.Bridge satisfies it; tests supply fakes.
type Game interface {
	equip.Mutator
	equip.RosterView

	Connect(ctx context.Context) error
	Close() error
	Feeds() roster.Feeds
	Events(cb func(model.AbilityEvent)) func()
}

// petIndex keeps the latest merged roster keyed by pet id so the
// ability-log ingester can annotate events without a remote call.
type petIndex struct {
	mu   sync.RWMutex
	pets map[string]model.Pet
}

func (p *petIndex) Pet(id string) (model.Pet, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pet, ok := p.pets[id]
	return pet, ok
}

func (p *petIndex) update(list []model.Pet) {
	next := make(map[string]model.Pet, len(list))
	for _, pet := range list {
		next[pet.ID] = pet
	}
	p.mu.Lock()
	p.pets = next
	p.mu.Unlock()
}

// logNotifier surfaces equip-run failures through the log; the game
// itself shows nothing when a run stops early.
type logNotifier struct {
	logger logger.Logger
}

func (n *logNotifier) Notify(ctx context.Context, message string) {
	n.logger.Warn(ctx, "equip aborted", logger.String("reason", message))
}

// Service implements the API dependencies for the pet roster system.
type Service struct {
	mu sync.RWMutex

	// External dependencies
	game  Game
	store repository.Store

	// Core components, built in Start
	roster   *roster.Synchronizer
	teams    *teams.Store
	ingester *abilitylog.Ingester
	engine   *equip.Engine
	queue    equipqueue.Queue
	runner   *worker.Runner
	index    *petIndex

	// Configuration
	rosterCapacity    int
	hutchCapacity     int
	inventoryCapacity int
	logCapacity       int
	cutoffSkew        time.Duration
	pickerTimeout     time.Duration
	queueSize         int

	// State
	started     bool
	unsubscribe func()
	runCancel   context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithGame sets the game connection the service drives.
func WithGame(g Game) Option {
	return func(s *Service) {
		if g != nil {
			s.game = g
		}
	}
}

// WithStore sets the persistence backend. Defaults to an in-memory
// store, which loses state on restart.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRosterCapacity sets the number of active pet slots.
func WithRosterCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rosterCapacity = n
		}
	}
}

// WithHutchCapacity sets the hutch size used for equip planning.
func WithHutchCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.hutchCapacity = n
		}
	}
}

// WithInventoryCapacity sets the inventory size used for equip planning.
func WithInventoryCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.inventoryCapacity = n
		}
	}
}

// WithAbilityLogCapacity bounds the persisted ability log.
func WithAbilityLogCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.logCapacity = n
		}
	}
}

// WithCutoffSkew sets the grace window applied before the log cutoff.
func WithCutoffSkew(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cutoffSkew = d
		}
	}
}

// WithPickerTimeout bounds the wait on the relocation picker.
func WithPickerTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pickerTimeout = d
		}
	}
}

// WithEquipQueueSize bounds the pending equip-run queue.
func WithEquipQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rosterCapacity:    model.TeamSlots,
		hutchCapacity:     25,
		inventoryCapacity: 50,
		logCapacity:       500,
		cutoffSkew:        1500 * time.Millisecond,
		pickerTimeout:     20 * time.Second,
		queueSize:         16,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start connects the game, restores persisted state and wires the
// roster, team, ability-log and equip components together.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.game == nil {
		return ErrNoGame
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
		s.logger.Info(ctx, "no store configured, state will not survive restarts")
	}

	s.logger.Info(ctx, "starting roster service...")

	if err := s.game.Connect(ctx); err != nil {
		return fmt.Errorf("connect game: %w", err)
	}

	s.roster = roster.New(s.game.Feeds(),
		roster.WithLogger(s.logger.Named("roster")),
	)
	s.index = &petIndex{}
	s.roster.OnChange(s.index.update)

	s.teams = teams.NewStore(ctx, repository.NewTeamsPersister(s.store),
		teams.WithLogger(s.logger.Named("teams")),
	)

	s.ingester = abilitylog.New(
		abilitylog.WithCapacity(s.logCapacity),
		abilitylog.WithCutoffSkew(s.cutoffSkew),
		abilitylog.WithPersister(repository.NewAbilityLogPersister(s.store)),
		abilitylog.WithMetadata(s.index),
		abilitylog.WithLogger(s.logger.Named("abilitylog")),
	)
	s.ingester.Restore(ctx)

	s.engine = equip.New(s.game, s.game,
		equip.WithLogger(s.logger.Named("equip")),
		equip.WithNotifier(&logNotifier{logger: s.logger}),
		equip.WithActiveCapacity(s.rosterCapacity),
		equip.WithInventoryCapacity(s.inventoryCapacity),
		equip.WithPickerTimeout(s.pickerTimeout),
	)

	s.queue = equipqueue.NewInMemoryQueue(
		equipqueue.WithCapacity(s.queueSize),
	)
	s.runner = worker.NewRunner(s.queue, s.engine,
		worker.WithLogger(s.logger.Named("worker")),
	)
	runCtx, cancel := context.WithCancel(context.Background())
	s.runCancel = cancel
	go s.runner.Run(runCtx)

	s.unsubscribe = s.game.Events(func(ev model.AbilityEvent) {
		s.ingester.Ingest(context.Background(), ev)
	})

	// Prime the merged roster so the feeds start streaming and the pet
	// index is populated before the first event arrives.
	s.index.update(s.roster.Pets(ctx))

	s.started = true
	s.logger.Info(ctx, "roster service started",
		logger.Int("logCapacity", s.logCapacity),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping roster service...")

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	_ = s.runner.Shutdown(shutdownCtx)
	cancel()
	s.runCancel()

	s.roster.Close()
	_ = s.game.Close()
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "roster service stopped")
}

// Roster returns the merged view of every pet the player owns.
func (s *Service) Roster(ctx context.Context) []model.Pet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.roster.Pets(ctx)
}

// SearchRoster filters the merged roster with the team search
// mini-language, resolving ability names through the log registry.
func (s *Service) SearchRoster(ctx context.Context, query string) []model.Pet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	var out []model.Pet
	names := s.ingester.Registry()
	for _, p := range s.roster.Pets(ctx) {
		if teams.Match(query, p, names) {
			out = append(out, p)
		}
	}
	return out
}

// Teams returns the ordered team list.
func (s *Service) Teams() []model.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.teams.List()
}

// CreateTeam adds a new team; an empty name gets a generated one.
func (s *Service) CreateTeam(ctx context.Context, name string) model.Team {
	return s.teams.Create(ctx, name)
}

// DeleteTeam removes a team. Returns false for unknown ids.
func (s *Service) DeleteTeam(ctx context.Context, id string) bool {
	return s.teams.Delete(ctx, id)
}

// SaveTeam applies a partial team update.
func (s *Service) SaveTeam(ctx context.Context, patch teams.Patch) (model.Team, bool) {
	return s.teams.Save(ctx, patch)
}

// SetTeamsOrder reorders the team list.
func (s *Service) SetTeamsOrder(ctx context.Context, ids []string) {
	s.teams.SetOrder(ctx, ids)
}

// TeamSearch returns the saved roster-search query for a team.
func (s *Service) TeamSearch(id string) (string, bool) {
	if _, ok := s.teams.Get(id); !ok {
		return "", false
	}
	return s.teams.Search(id), true
}

// SetTeamSearch stores a roster-search query for a team.
func (s *Service) SetTeamSearch(ctx context.Context, id, raw string) bool {
	if _, ok := s.teams.Get(id); !ok {
		return false
	}
	s.teams.SetSearch(ctx, id, raw)
	return true
}

// OnTeamsChange subscribes to full-list team updates.
func (s *Service) OnTeamsChange(fn func([]model.Team)) {
	s.teams.OnChange(fn)
}

// LastUsedTeam returns the id of the team most recently equipped.
func (s *Service) LastUsedTeam() string {
	return s.teams.LastUsed()
}

// UseTeam enqueues an equip run for the named team and waits for it.
// Runs are serialized; while one is pending the queue refuses more and
// the caller gets queue.ErrBusy.
func (s *Service) UseTeam(ctx context.Context, id string) (model.EquipResult, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.EquipResult{}, ErrNotStarted
	}

	team, ok := s.teams.Get(id)
	if !ok {
		return model.EquipResult{}, fmt.Errorf("use team %q: %w", id, teams.ErrUnknownTeam)
	}

	req := equipqueue.NewRequest(team)
	if !s.queue.Enqueue(ctx, req) {
		return model.EquipResult{}, fmt.Errorf("use team %q: %w", id, equipqueue.ErrBusy)
	}

	select {
	case res := <-req.Result:
		if res.Err == nil {
			s.teams.SetLastUsed(ctx, id)
		}
		return res.Counts, res.Err
	case <-ctx.Done():
		return model.EquipResult{}, fmt.Errorf("use team %q: %w", id, ctx.Err())
	}
}

// AbilityLogs returns logged entries, newest last, optionally filtered.
func (s *Service) AbilityLogs(filter string) []model.AbilityLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.ingester.Entries(filter)
}

// OnAbilityLogs subscribes to full-log updates.
func (s *Service) OnAbilityLogs(fn func([]model.AbilityLogEntry)) {
	s.ingester.OnChange(fn)
}

// ClearAbilityLogs empties the log and moves its cutoff to now.
func (s *Service) ClearAbilityLogs(ctx context.Context) {
	s.ingester.Clear(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"logCapacity":   s.logCapacity,
		"queueSize":     s.queueSize,
		"hutchCapacity": s.hutchCapacity,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		pets := s.roster.Pets(ctx)
		stats["teams"] = len(s.teams.List())
		stats["pets"] = len(pets)
		stats["queueLength"] = queueLen
		stats["abilityLogSize"] = len(s.ingester.Entries(""))
		stats["lastUsedTeam"] = s.teams.LastUsed()

		if free, err := s.game.HutchFreeSpace(ctx); err == nil {
			stats["hutchFree"] = free
			metrics.UpdateHutchFreeSpace(free)
		}

		metrics.UpdateEquipQueueDepth(queueLen)
		metrics.UpdateMergedPets(len(pets))
	}

	return stats
}
