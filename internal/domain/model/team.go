package model

// TeamSlots is the fixed number of pet slots per team.
const TeamSlots = 3

// Team is a named, persisted selection of up to three pet ids.
// Slots always has length TeamSlots; empty slots hold "".
type Team struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Slots [TeamSlots]string `json:"slots"`
}

// Members returns the team's non-empty slot ids, deduplicated, in slot
// order. The equip engine operates on this set; duplicate slot entries
// are legal in the model but meaningless.
func (t Team) Members() []string {
	out := make([]string, 0, TeamSlots)
	for _, id := range t.Slots {
		if id == "" {
			continue
		}
		seen := false
		for _, prev := range out {
			if prev == id {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, id)
		}
	}
	return out
}

// NormalizeSlots pads or truncates ids to exactly TeamSlots entries.
func NormalizeSlots(ids []string) [TeamSlots]string {
	var slots [TeamSlots]string
	for i := 0; i < TeamSlots && i < len(ids); i++ {
		slots[i] = ids[i]
	}
	return slots
}
