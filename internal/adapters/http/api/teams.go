package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/menagerie/internal/adapters/mq/queue"
	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/internal/domain/teams"
)

// TeamsHandler handles team CRUD, ordering, search and equip requests.
type TeamsHandler struct {
	deps Dependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps Dependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

// createTeamRequest mirrors the POST /teams body.
type createTeamRequest struct {
	Name string `json:"name"`
}

// patchTeamRequest mirrors the PATCH /teams/{id} body. Absent fields
// leave the stored value unchanged.
type patchTeamRequest struct {
	Name  *string  `json:"name"`
	Slots []string `json:"slots"`
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

type searchResponse struct {
	Query string `json:"query"`
}

// useResponse carries equip counts back to the caller. Error is set on
// a fatal run that stopped early; the counts then cover the targets
// handled before the stop.
type useResponse struct {
	Swapped int    `json:"swapped"`
	Placed  int    `json:"placed"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// HandleTeams handles GET and POST /teams requests.
func (h *TeamsHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list := h.deps.Teams()
		if list == nil {
			list = []model.Team{}
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req createTeamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		team := h.deps.CreateTeam(r.Context(), strings.TrimSpace(req.Name))
		writeJSON(w, http.StatusCreated, team)
	default:
		http.NotFound(w, r)
	}
}

// HandleTeamByID routes /teams/{id}, /teams/{id}/search, /teams/{id}/use
// and /teams/order requests.
func (h *TeamsHandler) HandleTeamByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/teams/")
	if rest == "order" {
		h.handleOrder(w, r)
		return
	}
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	switch sub {
	case "":
		h.handleTeam(w, r, id)
	case "search":
		h.handleSearch(w, r, id)
	case "use":
		h.handleUse(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *TeamsHandler) handleTeam(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPatch:
		var req patchTeamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		team, ok := h.deps.SaveTeam(r.Context(), teams.Patch{ID: id, Name: req.Name, Slots: req.Slots})
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, team)
	case http.MethodDelete:
		if !h.deps.DeleteTeam(r.Context(), id) {
			writeError(w, http.StatusNotFound, "not_found", ErrNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (h *TeamsHandler) handleOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	h.deps.SetTeamsOrder(r.Context(), req.IDs)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamsHandler) handleSearch(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		query, ok := h.deps.TeamSearch(id)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Query: query})
	case http.MethodPut:
		var req searchResponse
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		if !h.deps.SetTeamSearch(r.Context(), id, req.Query) {
			writeError(w, http.StatusNotFound, "not_found", ErrNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (h *TeamsHandler) handleUse(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	result, err := h.deps.UseTeam(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, useResponse{Swapped: result.Swapped, Placed: result.Placed, Skipped: result.Skipped})
	case errors.Is(err, teams.ErrUnknownTeam):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, queue.ErrBusy):
		writeError(w, http.StatusConflict, "equip_busy", err)
	default:
		// Fatal mid-run stop; surface the partial counts with the error.
		writeJSON(w, http.StatusBadGateway, useResponse{
			Swapped: result.Swapped,
			Placed:  result.Placed,
			Skipped: result.Skipped,
			Error:   err.Error(),
		})
	}
}
