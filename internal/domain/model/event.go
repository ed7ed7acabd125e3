package model

// AbilityEvent is a raw ability-trigger record from the game's event
// feed. Events arrive possibly duplicated and out of order across pets;
// PerformedAt is only guaranteed non-decreasing per pet once the
// ingester's watermark has filtered them.
type AbilityEvent struct {
	PetID       string         // subject pet id
	AbilityID   string         // opaque ability kind id
	PerformedAt int64          // unix milliseconds
	Magnitude   *float64       // derived percentage; nil when the ability reports none
	Payload     map[string]any // ability-kind-specific detail fields
}

// AbilityLogEntry is one formatted row of the persisted activity log.
type AbilityLogEntry struct {
	PetID       string `json:"petId"`
	Species     string `json:"species,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	AbilityID   string `json:"abilityId"`
	AbilityName string `json:"abilityName"`
	Detail      string `json:"detail"`
	PerformedAt int64  `json:"performedAt"`
	DisplayTime string `json:"displayTime"`
}

// EquipResult reports what a single equip run did.
type EquipResult struct {
	Swapped int `json:"swapped"`
	Placed  int `json:"placed"`
	Skipped int `json:"skipped"`
}

// Total returns the number of targets the run accounted for.
func (r EquipResult) Total() int {
	return r.Swapped + r.Placed + r.Skipped
}
