package api

import (
	"net/http"

	"github.com/okian/menagerie/internal/domain/model"
)

// RosterHandler handles merged-roster read requests.
type RosterHandler struct {
	deps Dependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps Dependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

// HandleGetRoster handles GET /roster requests.
func (h *RosterHandler) HandleGetRoster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var pets []model.Pet
	if query := r.URL.Query().Get("search"); query != "" {
		pets = h.deps.SearchRoster(r.Context(), query)
	} else {
		pets = h.deps.Roster(r.Context())
	}
	if pets == nil {
		pets = []model.Pet{}
	}
	writeJSON(w, http.StatusOK, pets)
}
