package roster

import (
	"encoding/json"

	"github.com/okian/menagerie/internal/domain/model"
)

// signaturePet is the volatility-excluding projection of a pet used for
// rebuild suppression. XP and hunger change continuously and must not
// count as roster changes.
type signaturePet struct {
	ID          string   `json:"id"`
	Species     string   `json:"species"`
	Nickname    string   `json:"nickname"`
	Mutations   []string `json:"mutations"`
	TargetScale float64  `json:"targetScale"`
	AbilityIDs  []string `json:"abilities"`
}

// signature returns the stable fingerprint of a pet.
func signature(p model.Pet) string {
	b, err := json.Marshal(signaturePet{
		ID:          p.ID,
		Species:     p.Species,
		Nickname:    p.Nickname,
		Mutations:   p.Mutations,
		TargetScale: p.TargetScale,
		AbilityIDs:  p.AbilityIDs,
	})
	if err != nil {
		// Marshal of a plain struct cannot fail; fall back to the id so a
		// broken signature never suppresses a real change.
		return p.ID
	}
	return string(b)
}

// signatureMap fingerprints a whole snapshot, keyed by pet id.
func signatureMap(pets []model.Pet) map[string]string {
	sigs := make(map[string]string, len(pets))
	for _, p := range pets {
		sigs[p.ID] = signature(p)
	}
	return sigs
}

// signaturesEqual reports whether two snapshots have identical id sets
// and identical per-id signatures.
func signaturesEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for id, sig := range a {
		if other, ok := b[id]; !ok || other != sig {
			return false
		}
	}
	return true
}
