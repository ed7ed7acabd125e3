// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/internal/domain/teams"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Roster returns the merged view of every pet the player owns.
	Roster(ctx context.Context) []model.Pet

	// SearchRoster filters the merged roster with the team search
	// mini-language (bare substrings, sp:/ab:/mu: prefixes).
	SearchRoster(ctx context.Context, query string) []model.Pet

	// Team operations.
	Teams() []model.Team
	CreateTeam(ctx context.Context, name string) model.Team
	DeleteTeam(ctx context.Context, id string) bool
	SaveTeam(ctx context.Context, patch teams.Patch) (model.Team, bool)
	SetTeamsOrder(ctx context.Context, ids []string)
	TeamSearch(id string) (string, bool)
	SetTeamSearch(ctx context.Context, id, raw string) bool

	// UseTeam converges the active roster to the named team. It returns
	// teams.ErrUnknownTeam for unknown ids and queue.ErrBusy while a
	// previous run is still pending.
	UseTeam(ctx context.Context, id string) (model.EquipResult, error)

	// Ability-log operations.
	AbilityLogs(filter string) []model.AbilityLogEntry
	ClearAbilityLogs(ctx context.Context)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	rosterHandler  *RosterHandler
	teamsHandler   *TeamsHandler
	abilityHandler *AbilityLogHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		rosterHandler:  NewRosterHandler(deps),
		teamsHandler:   NewTeamsHandler(deps),
		abilityHandler: NewAbilityLogHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/roster", MetricsMiddleware(s.rosterHandler.HandleGetRoster, "roster"))
	mux.HandleFunc("/teams", MetricsMiddleware(s.teamsHandler.HandleTeams, "teams"))
	mux.HandleFunc("/teams/", MetricsMiddleware(s.teamsHandler.HandleTeamByID, "team"))
	mux.HandleFunc("/ability-log", MetricsMiddleware(s.abilityHandler.HandleAbilityLog, "ability_log"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
