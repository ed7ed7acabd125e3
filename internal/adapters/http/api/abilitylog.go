package api

import (
	"net/http"

	"github.com/okian/menagerie/internal/domain/model"
)

// AbilityLogHandler handles activity-log read and clear requests.
type AbilityLogHandler struct {
	deps Dependencies
}

// NewAbilityLogHandler creates a new ability-log handler.
func NewAbilityLogHandler(deps Dependencies) *AbilityLogHandler {
	return &AbilityLogHandler{deps: deps}
}

// HandleAbilityLog handles GET and DELETE /ability-log requests. GET
// accepts a "filter" query parameter matched against pet id, names and
// ability text.
func (h *AbilityLogHandler) HandleAbilityLog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries := h.deps.AbilityLogs(r.URL.Query().Get("filter"))
		if entries == nil {
			entries = []model.AbilityLogEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodDelete:
		h.deps.ClearAbilityLogs(r.Context())
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}
