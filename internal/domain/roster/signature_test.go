package roster

import (
	"testing"

	"github.com/okian/menagerie/internal/domain/model"
)

func TestSignatureExcludesVolatileFields(t *testing.T) {
	base := model.Pet{
		ID: "p1", Species: "wombat", Nickname: "Biscuit",
		XP: 10, Hunger: 0.5,
		Mutations: []string{"shiny"}, TargetScale: 1.2,
		AbilityIDs: []string{"forage-1"},
	}
	fed := base
	fed.XP = 999
	fed.Hunger = 0.1

	if signature(base) != signature(fed) {
		t.Error("xp/hunger changes must not alter the signature")
	}

	renamed := base
	renamed.Nickname = "Toast"
	if signature(base) == signature(renamed) {
		t.Error("nickname change must alter the signature")
	}

	mutated := base
	mutated.Mutations = []string{"giant", "shiny"}
	if signature(base) == signature(mutated) {
		t.Error("mutation change must alter the signature")
	}
}

func TestSignaturesEqual(t *testing.T) {
	a := []model.Pet{{ID: "a", Species: "s1"}, {ID: "b", Species: "s2"}}
	b := []model.Pet{{ID: "b", Species: "s2"}, {ID: "a", Species: "s1"}}

	if !signaturesEqual(signatureMap(a), signatureMap(b)) {
		t.Error("order must not matter for snapshot equality")
	}

	c := []model.Pet{{ID: "a", Species: "s1"}}
	if signaturesEqual(signatureMap(a), signatureMap(c)) {
		t.Error("different id sets must not compare equal")
	}

	d := []model.Pet{{ID: "a", Species: "changed"}, {ID: "b", Species: "s2"}}
	if signaturesEqual(signatureMap(a), signatureMap(d)) {
		t.Error("changed value must not compare equal")
	}
}
