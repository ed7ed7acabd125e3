package repository

import (
	"context"
	"encoding/json"

	"github.com/okian/menagerie/internal/domain/abilitylog"
	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/pkg/logger"
)

// TeamsPersister adapts the kv store to the team store's persistence
// interface. Corrupt payloads are treated as missing state.
type TeamsPersister struct {
	store  Store
	logger logger.Logger
}

// NewTeamsPersister wraps a Store for team persistence.
func NewTeamsPersister(store Store) *TeamsPersister {
	return &TeamsPersister{store: store, logger: logger.Get().Named("repository")}
}

func (p *TeamsPersister) SaveTeams(ctx context.Context, teams []model.Team) error {
	b, err := json.Marshal(teams)
	if err != nil {
		return err
	}
	return p.store.Put(ctx, nsTeams, "list", b)
}

func (p *TeamsPersister) LoadTeams(ctx context.Context) ([]model.Team, bool, error) {
	b, ok, err := p.store.Get(ctx, nsTeams, "list")
	if err != nil || !ok {
		return nil, false, err
	}
	var teams []model.Team
	if err := json.Unmarshal(b, &teams); err != nil {
		p.logger.Warn(ctx, "discarding corrupt team payload", logger.Error(err))
		return nil, false, nil
	}
	return teams, true, nil
}

func (p *TeamsPersister) SaveTeamSearch(ctx context.Context, teamID, raw string) error {
	if raw == "" {
		return p.store.Delete(ctx, nsTeamSearch, teamID)
	}
	return p.store.Put(ctx, nsTeamSearch, teamID, []byte(raw))
}

func (p *TeamsPersister) LoadTeamSearches(ctx context.Context) (map[string]string, error) {
	entries, err := p.store.List(ctx, nsTeamSearch)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for id, raw := range entries {
		out[id] = string(raw)
	}
	return out, nil
}

func (p *TeamsPersister) SaveLastTeam(ctx context.Context, teamID string) error {
	return p.store.Put(ctx, nsMeta, "last_team", []byte(teamID))
}

func (p *TeamsPersister) LoadLastTeam(ctx context.Context) (string, error) {
	b, ok, err := p.store.Get(ctx, nsMeta, "last_team")
	if err != nil || !ok {
		return "", err
	}
	return string(b), nil
}

// AbilityLogPersister adapts the kv store to the ingester's snapshot
// persistence.
type AbilityLogPersister struct {
	store  Store
	logger logger.Logger
}

// NewAbilityLogPersister wraps a Store for ability-log persistence.
func NewAbilityLogPersister(store Store) *AbilityLogPersister {
	return &AbilityLogPersister{store: store, logger: logger.Get().Named("repository")}
}

func (p *AbilityLogPersister) SaveAbilityLog(ctx context.Context, snap abilitylog.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.store.Put(ctx, nsAbilityLog, "snapshot", b)
}

func (p *AbilityLogPersister) LoadAbilityLog(ctx context.Context) (abilitylog.Snapshot, bool, error) {
	b, ok, err := p.store.Get(ctx, nsAbilityLog, "snapshot")
	if err != nil || !ok {
		return abilitylog.Snapshot{}, false, err
	}
	var snap abilitylog.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		p.logger.Warn(ctx, "discarding corrupt ability log payload", logger.Error(err))
		return abilitylog.Snapshot{}, false, nil
	}
	return snap, true, nil
}
