// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"strings"
)

// Pet is the canonical pet record produced by the roster synchronizer.
// The same id may surface from more than one game feed; the merged view
// keeps exactly one version per id.
type Pet struct {
	ID          string   // unique and stable across all feeds
	Species     string   // species key, a game slug like "moon_toad"
	Nickname    string   // player-given name; empty when unset
	XP          float64  // volatile, excluded from signatures
	Hunger      float64  // volatile, excluded from signatures
	Mutations   []string // sorted mutation tags
	TargetScale float64  // growth target; 0 when unset
	AbilityIDs  []string // ability ids in slot order
}

// DisplayName returns the nickname when set, otherwise the species.
func (p Pet) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.Species
}

// HasMutation reports whether the pet carries the given mutation tag.
func (p Pet) HasMutation(tag string) bool {
	return slices.Contains(p.Mutations, tag)
}

// RawPet mirrors the wire shape delivered by the game feeds. Fields the
// game omits arrive as zero values; Nickname and TargetScale are pointers
// because the game distinguishes "unset" from empty/zero.
type RawPet struct {
	ID          string         `json:"id"`
	Species     string         `json:"species"`
	Nickname    *string        `json:"nickname,omitempty"`
	XP          float64        `json:"xp"`
	Hunger      float64        `json:"hunger"`
	Mutations   []string       `json:"mutations,omitempty"`
	TargetScale *float64       `json:"targetScale,omitempty"`
	AbilityIDs  []string       `json:"abilities,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Normalize converts a raw feed record into the canonical Pet shape.
// Mutation tags are deduplicated and sorted so signatures are stable.
func (r RawPet) Normalize() Pet {
	p := Pet{
		ID:         strings.TrimSpace(r.ID),
		Species:    r.Species,
		XP:         r.XP,
		Hunger:     r.Hunger,
		AbilityIDs: slices.Clone(r.AbilityIDs),
	}
	if r.Nickname != nil {
		p.Nickname = strings.TrimSpace(*r.Nickname)
	}
	if r.TargetScale != nil {
		p.TargetScale = *r.TargetScale
	}
	if len(r.Mutations) > 0 {
		tags := slices.Clone(r.Mutations)
		slices.Sort(tags)
		p.Mutations = slices.Compact(tags)
	}
	return p
}
