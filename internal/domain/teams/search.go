package teams

import (
	"strings"

	"github.com/okian/menagerie/internal/domain/model"
)

// AbilityNamer resolves an ability id to its display name. The ability
// log registry implements this.
type AbilityNamer interface {
	AbilityName(id string) string
}

// Filter prefixes of the search mini-language.
const (
	abilityPrefix = "ab:"
	speciesPrefix = "sp:"
)

// Match evaluates a raw team search string against a pet.
//
//	ab:<v>  pet has an ability whose level-stripped display name equals v
//	sp:<v>  pet species equals v
//	<v>     case-insensitive substring over id, species, nickname,
//	        ability display names/ids, and mutation tags
//
// Comparisons are case-insensitive. Empty or whitespace-only strings
// match everything.
func Match(raw string, p model.Pet, names AbilityNamer) bool {
	query := strings.TrimSpace(raw)
	if query == "" {
		return true
	}

	switch {
	case strings.HasPrefix(strings.ToLower(query), abilityPrefix):
		want := strings.TrimSpace(query[len(abilityPrefix):])
		if want == "" {
			return true
		}
		for _, id := range p.AbilityIDs {
			name := StripLevel(abilityName(names, id))
			if strings.EqualFold(name, want) {
				return true
			}
		}
		return false

	case strings.HasPrefix(strings.ToLower(query), speciesPrefix):
		want := strings.TrimSpace(query[len(speciesPrefix):])
		if want == "" {
			return true
		}
		return strings.EqualFold(p.Species, want)

	default:
		needle := strings.ToLower(query)
		if contains(p.ID, needle) || contains(p.Species, needle) || contains(p.Nickname, needle) {
			return true
		}
		for _, id := range p.AbilityIDs {
			if contains(id, needle) || contains(abilityName(names, id), needle) {
				return true
			}
		}
		for _, tag := range p.Mutations {
			if contains(tag, needle) {
				return true
			}
		}
		return false
	}
}

func contains(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

func abilityName(names AbilityNamer, id string) string {
	if names == nil {
		return id
	}
	return names.AbilityName(id)
}

// romanLevels covers the level suffixes the game uses on ability names.
var romanLevels = map[string]bool{
	"i": true, "ii": true, "iii": true, "iv": true, "v": true,
	"vi": true, "vii": true, "viii": true, "ix": true, "x": true,
}

// StripLevel removes a trailing level token ("Forage III" -> "Forage",
// "Dig 2" -> "Dig") so searches match an ability across levels.
func StripLevel(name string) string {
	trimmed := strings.TrimSpace(name)
	idx := strings.LastIndexByte(trimmed, ' ')
	if idx < 0 {
		return trimmed
	}
	suffix := strings.ToLower(trimmed[idx+1:])
	if romanLevels[suffix] || isDigits(suffix) {
		return strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
