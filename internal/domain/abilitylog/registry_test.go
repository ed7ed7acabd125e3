package abilitylog_test

import (
	"testing"

	"github.com/okian/menagerie/internal/domain/abilitylog"
	"github.com/okian/menagerie/internal/domain/model"
)

func TestHumanizeID(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"forage", "Forage"},
		{"mega-forage", "Mega Forage"},
		{"xp_share", "Xp Share"},
		{"", ""},
	}
	for _, c := range cases {
		if got := abilitylog.HumanizeID(c.id); got != c.want {
			t.Errorf("HumanizeID(%q) = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestFormatKnownAbility(t *testing.T) {
	r := abilitylog.NewRegistry()
	name, detail := r.Format(model.AbilityEvent{
		AbilityID: "forage",
		Payload:   map[string]any{"item": "truffle"},
	})
	if name != "Forage" {
		t.Errorf("name = %q, want Forage", name)
	}
	if detail != "dug up truffle" {
		t.Errorf("detail = %q", detail)
	}
}

func TestFormatUnknownAbilityFallsBack(t *testing.T) {
	r := abilitylog.NewRegistry()
	mag := 42.5
	name, detail := r.Format(model.AbilityEvent{
		AbilityID: "moon-howl",
		Magnitude: &mag,
	})
	if name != "Moon Howl" {
		t.Errorf("name = %q, want Moon Howl", name)
	}
	if detail != "triggered Moon Howl (42.5%)" {
		t.Errorf("detail = %q", detail)
	}
}

func TestRegisterOverridesFormatter(t *testing.T) {
	r := abilitylog.NewRegistry()
	r.Register("forage", abilitylog.Formatter{Name: "Super Forage"})
	if got := r.AbilityName("forage"); got != "Super Forage" {
		t.Errorf("AbilityName = %q, want Super Forage", got)
	}
}

func TestAbilityNameUnknownHumanizes(t *testing.T) {
	r := abilitylog.NewRegistry()
	if got := r.AbilityName("night-vision"); got != "Night Vision" {
		t.Errorf("AbilityName = %q, want Night Vision", got)
	}
}
