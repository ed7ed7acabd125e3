package roster

import (
	"testing"

	"github.com/okian/menagerie/internal/domain/model"
)

func TestMergeByPriority(t *testing.T) {
	low := []model.Pet{{ID: "a", Species: "low"}, {ID: "b", Species: "low"}}
	mid := []model.Pet{{ID: "b", Species: "mid"}, {ID: "c", Species: "mid"}}
	high := []model.Pet{{ID: "c", Species: "high"}, {ID: "d", Species: "high"}}

	got := mergeByPriority(low, mid, high)

	want := map[string]string{"a": "low", "b": "mid", "c": "high", "d": "high"}
	if len(got) != len(want) {
		t.Fatalf("merged %d pets, want %d", len(got), len(want))
	}
	for _, p := range got {
		if want[p.ID] != p.Species {
			t.Errorf("pet %s came from %q, want %q", p.ID, p.Species, want[p.ID])
		}
	}
}

func TestMergeByPriorityOrderStable(t *testing.T) {
	low := []model.Pet{{ID: "x"}, {ID: "y"}}
	high := []model.Pet{{ID: "y"}, {ID: "z"}}

	first := mergeByPriority(low, high)
	second := mergeByPriority(low, high)

	if len(first) != 3 {
		t.Fatalf("merged %d pets, want 3", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("merge order not deterministic: %v vs %v", first, second)
		}
	}
}

func TestMergeByPrioritySkipsEmptyIDs(t *testing.T) {
	got := mergeByPriority([]model.Pet{{ID: ""}, {ID: "a"}})
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("got %v, want just pet a", got)
	}
}
