// Package teams provides durable, observable storage of named pet teams
// and their per-team search filters.
package teams

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/pkg/logger"
)

// Persister is the durable backend for team state. Implementations must
// tolerate missing keys (first run) by reporting ok=false rather than an
// error.
type Persister interface {
	SaveTeams(ctx context.Context, teams []model.Team) error
	LoadTeams(ctx context.Context) ([]model.Team, bool, error)
	SaveTeamSearch(ctx context.Context, teamID, raw string) error
	LoadTeamSearches(ctx context.Context) (map[string]string, error)
	SaveLastTeam(ctx context.Context, teamID string) error
	LoadLastTeam(ctx context.Context) (string, error)
}

// Patch is a partial team update. Nil fields are left unchanged; Slots
// is normalized to exactly model.TeamSlots entries when present.
type Patch struct {
	ID    string
	Name  *string
	Slots []string
}

// Store holds the team list. All mutations persist synchronously and
// push the full current list to subscribers.
type Store struct {
	mu       sync.Mutex
	persist  Persister
	teams    []model.Team
	searches map[string]string
	lastUsed string
	watchers []func([]model.Team)
	logger   logger.Logger
	newID    func() string
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator overrides team id generation, for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore constructs a Store and restores persisted state. Malformed or
// missing persisted payloads fall back to empty defaults.
func NewStore(ctx context.Context, p Persister, opts ...Option) *Store {
	s := &Store{
		persist:  p,
		searches: make(map[string]string),
		logger:   logger.Get().Named("teams"),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) {
	teams, ok, err := s.persist.LoadTeams(ctx)
	if err != nil {
		s.logger.Warn(ctx, "restoring teams failed; starting empty", logger.Error(err))
	} else if ok {
		s.teams = teams
	}

	searches, err := s.persist.LoadTeamSearches(ctx)
	if err != nil {
		s.logger.Warn(ctx, "restoring team searches failed; starting empty", logger.Error(err))
	} else if searches != nil {
		s.searches = searches
	}

	last, err := s.persist.LoadLastTeam(ctx)
	if err != nil {
		s.logger.Warn(ctx, "restoring last team failed", logger.Error(err))
	} else {
		s.lastUsed = last
	}
}

// List returns the current team list in order.
func (s *Store) List() []model.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.teams)
}

// Get returns the team with the given id.
func (s *Store) Get(id string) (model.Team, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.ID == id {
			return t, true
		}
	}
	return model.Team{}, false
}

// Create appends a new team with three empty slots. An empty name
// defaults to "Team N" where N is the new team count.
func (s *Store) Create(ctx context.Context, name string) model.Team {
	s.mu.Lock()
	if name == "" {
		name = fmt.Sprintf("Team %d", len(s.teams)+1)
	}
	team := model.Team{ID: s.newID(), Name: name}
	s.teams = append(s.teams, team)
	s.mu.Unlock()

	s.persistAndNotify(ctx)
	return team
}

// Delete removes the team with the given id, reporting whether a removal
// occurred. The team's search filter is dropped with it.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := slices.IndexFunc(s.teams, func(t model.Team) bool { return t.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.teams = slices.Delete(s.teams, idx, idx+1)
	delete(s.searches, id)
	s.mu.Unlock()

	s.persistAndNotify(ctx)
	return true
}

// Save applies a partial update to an existing team. Returns the updated
// team, or ok=false when the id is unknown.
func (s *Store) Save(ctx context.Context, patch Patch) (model.Team, bool) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.teams, func(t model.Team) bool { return t.ID == patch.ID })
	if idx < 0 {
		s.mu.Unlock()
		return model.Team{}, false
	}
	if patch.Name != nil {
		s.teams[idx].Name = *patch.Name
	}
	if patch.Slots != nil {
		s.teams[idx].Slots = model.NormalizeSlots(patch.Slots)
	}
	team := s.teams[idx]
	s.mu.Unlock()

	s.persistAndNotify(ctx)
	return team, true
}

// SetOrder reorders teams to match ids. Teams not mentioned keep their
// previous relative order and move to the end.
func (s *Store) SetOrder(ctx context.Context, ids []string) {
	s.mu.Lock()
	byID := make(map[string]model.Team, len(s.teams))
	for _, t := range s.teams {
		byID[t.ID] = t
	}
	reordered := make([]model.Team, 0, len(s.teams))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			reordered = append(reordered, t)
			delete(byID, id)
		}
	}
	for _, t := range s.teams {
		if _, left := byID[t.ID]; left {
			reordered = append(reordered, t)
		}
	}
	s.teams = reordered
	s.mu.Unlock()

	s.persistAndNotify(ctx)
}

// Search returns the raw filter string stored for a team.
func (s *Store) Search(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches[id]
}

// SetSearch stores a raw filter string for a team and persists it.
func (s *Store) SetSearch(ctx context.Context, id, raw string) {
	s.mu.Lock()
	s.searches[id] = raw
	s.mu.Unlock()

	if err := s.persist.SaveTeamSearch(ctx, id, raw); err != nil {
		s.logger.Warn(ctx, "persisting team search failed", logger.String("team", id), logger.Error(err))
	}
}

// LastUsed returns the id of the most recently equipped team.
func (s *Store) LastUsed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// SetLastUsed records the most recently equipped team.
func (s *Store) SetLastUsed(ctx context.Context, id string) {
	s.mu.Lock()
	s.lastUsed = id
	s.mu.Unlock()

	if err := s.persist.SaveLastTeam(ctx, id); err != nil {
		s.logger.Warn(ctx, "persisting last team failed", logger.Error(err))
	}
}

// OnChange registers a callback receiving the full team list after every
// mutation.
func (s *Store) OnChange(fn func([]model.Team)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Store) persistAndNotify(ctx context.Context) {
	s.mu.Lock()
	teams := slices.Clone(s.teams)
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	if err := s.persist.SaveTeams(ctx, teams); err != nil {
		s.logger.Warn(ctx, "persisting teams failed", logger.Error(err))
	}
	for _, fn := range watchers {
		fn(teams)
	}
}
