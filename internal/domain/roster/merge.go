package roster

import (
	"github.com/okian/menagerie/internal/domain/model"
)

// mergeByPriority merges pet lists keyed by id, iterating sources from
// lowest to highest priority so later lists overwrite earlier ones. The
// result preserves the order in which each winning id first appeared,
// which keeps output deterministic for identical inputs.
func mergeByPriority(lowToHigh ...[]model.Pet) []model.Pet {
	byID := make(map[string]model.Pet)
	order := make([]string, 0)
	for _, list := range lowToHigh {
		for _, p := range list {
			if p.ID == "" {
				continue
			}
			if _, exists := byID[p.ID]; !exists {
				order = append(order, p.ID)
			}
			byID[p.ID] = p
		}
	}
	out := make([]model.Pet, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}
