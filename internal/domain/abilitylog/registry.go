package abilitylog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/okian/menagerie/internal/domain/model"
)

// Formatter renders one ability kind for the activity log.
type Formatter struct {
	// Name is the human-facing ability name shown in log entries.
	Name string
	// Detail builds the entry detail line from the raw event. A nil
	// Detail falls back to the generic renderer.
	Detail func(ev model.AbilityEvent) string
}

// Registry maps ability ids to formatters. Unknown ids get a fallback
// formatter that humanizes the id and renders a generic detail line.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry returns a registry pre-populated with the known ability
// kinds.
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[string]Formatter)}

	r.Register("forage", Formatter{
		Name: "Forage",
		Detail: func(ev model.AbilityEvent) string {
			if item, ok := payloadString(ev, "item"); ok {
				return fmt.Sprintf("dug up %s", item)
			}
			return "dug up something"
		},
	})
	r.Register("harvest-boost", Formatter{
		Name: "Harvest Boost",
		Detail: func(ev model.AbilityEvent) string {
			if ev.Magnitude != nil {
				return fmt.Sprintf("boosted harvest by %s", formatPercent(*ev.Magnitude))
			}
			return "boosted a nearby harvest"
		},
	})
	r.Register("xp-share", Formatter{
		Name: "XP Share",
		Detail: func(ev model.AbilityEvent) string {
			if target, ok := payloadString(ev, "target"); ok {
				return fmt.Sprintf("shared experience with %s", target)
			}
			return "shared experience with the team"
		},
	})
	r.Register("hunger-restore", Formatter{
		Name: "Hunger Restore",
		Detail: func(ev model.AbilityEvent) string {
			if ev.Magnitude != nil {
				return fmt.Sprintf("restored hunger to %s", formatPercent(*ev.Magnitude))
			}
			return "restored hunger"
		},
	})
	r.Register("seed-finder", Formatter{
		Name: "Seed Finder",
		Detail: func(ev model.AbilityEvent) string {
			if seed, ok := payloadString(ev, "seed"); ok {
				return fmt.Sprintf("found a %s seed", seed)
			}
			return "found a seed"
		},
	})
	r.Register("scare", Formatter{
		Name: "Scare",
		Detail: func(ev model.AbilityEvent) string {
			if target, ok := payloadString(ev, "target"); ok {
				return fmt.Sprintf("scared off %s", target)
			}
			return "scared off an intruder"
		},
	})

	return r
}

// Register installs or replaces the formatter for an ability id.
func (r *Registry) Register(abilityID string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[abilityID] = f
}

// Format renders the display name and detail line for an event. Falls
// back to a humanized ability id and a generic detail for unknown kinds.
func (r *Registry) Format(ev model.AbilityEvent) (name, detail string) {
	r.mu.RLock()
	f, ok := r.formatters[ev.AbilityID]
	r.mu.RUnlock()

	if !ok {
		f = Formatter{Name: HumanizeID(ev.AbilityID)}
	}
	name = f.Name
	if f.Detail != nil {
		detail = f.Detail(ev)
	} else {
		detail = genericDetail(ev, name)
	}
	return name, detail
}

// AbilityName returns the display name for an ability id without an
// event context. Satisfies the team search's ability-name lookup.
func (r *Registry) AbilityName(abilityID string) string {
	r.mu.RLock()
	f, ok := r.formatters[abilityID]
	r.mu.RUnlock()
	if ok {
		return f.Name
	}
	return HumanizeID(abilityID)
}

func genericDetail(ev model.AbilityEvent, name string) string {
	if ev.Magnitude != nil {
		return fmt.Sprintf("triggered %s (%s)", name, formatPercent(*ev.Magnitude))
	}
	return fmt.Sprintf("triggered %s", name)
}

// HumanizeID turns an ability id like "mega-forage" into "Mega Forage":
// hyphens and underscores become spaces and each word is capitalized.
func HumanizeID(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return id
	}
	return strings.Join(words, " ")
}

func payloadString(ev model.AbilityEvent, key string) (string, bool) {
	if ev.Payload == nil {
		return "", false
	}
	s, ok := ev.Payload[key].(string)
	return s, ok && s != ""
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
