// Package gamesim is a stand-in game server for development and
// integration tests: an in-memory pet world served over the real
// websocket protocol, with scripted ability events and optional
// failure injection.
package gamesim

import (
	"fmt"
	"slices"
	"sync"

	"github.com/okian/menagerie/internal/domain/model"
)

const (
	defaultHutchCapacity     = 25
	defaultInventoryCapacity = 50
)

// World holds the simulated game state. All mutations follow the same
// rules the real game enforces, so a misbehaving client sees errors
// instead of silently inconsistent state.
type World struct {
	mu        sync.Mutex
	active    []model.RawPet
	inventory []model.RawPet
	hutch     []model.RawPet
	hutchCap  int
	invCap    int
	favorites []string
	failing   map[string]bool
	onChange  func(kind string)
}

// WorldOption applies a configuration option to the World.
type WorldOption func(*World)

// WithHutchCapacity sets the hutch slot count.
func WithHutchCapacity(n int) WorldOption {
	return func(w *World) {
		if n >= 0 {
			w.hutchCap = n
		}
	}
}

// WithInventoryCapacity sets the inventory slot count.
func WithInventoryCapacity(n int) WorldOption {
	return func(w *World) {
		if n >= 0 {
			w.invCap = n
		}
	}
}

// NewWorld creates an empty world.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		hutchCap: defaultHutchCapacity,
		invCap:   defaultInventoryCapacity,
		failing:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Pet builds a minimal pet record for seeding.
func Pet(id, species string) model.RawPet {
	return model.RawPet{ID: id, Species: species}
}

// SeedActive replaces the active roster.
func (w *World) SeedActive(pets ...model.RawPet) {
	w.mu.Lock()
	w.active = pets
	w.mu.Unlock()
	w.changed("active")
}

// SeedInventory replaces the inventory.
func (w *World) SeedInventory(pets ...model.RawPet) {
	w.mu.Lock()
	w.inventory = pets
	w.mu.Unlock()
	w.changed("inventory")
}

// SeedHutch replaces the hutch contents.
func (w *World) SeedHutch(pets ...model.RawPet) {
	w.mu.Lock()
	w.hutch = pets
	w.mu.Unlock()
	w.changed("hutch")
}

// SetFavorites replaces the favorited pet ids.
func (w *World) SetFavorites(ids ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.favorites = ids
}

// SetFailing forces every request of the given message type to fail,
// for exercising client error paths.
func (w *World) SetFailing(msgType string, on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failing[msgType] = on
}

func (w *World) isFailing(msgType string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failing[msgType]
}

// Active returns a copy of the active roster.
func (w *World) Active() []model.RawPet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.active)
}

// Inventory returns a copy of the inventory.
func (w *World) Inventory() []model.RawPet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.inventory)
}

// Hutch returns a copy of the hutch contents.
func (w *World) Hutch() []model.RawPet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.hutch)
}

// HutchFree returns the free hutch slot count.
func (w *World) HutchFree() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hutchCap - len(w.hutch)
}

// Favorites returns the favorited pet ids.
func (w *World) Favorites() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.favorites)
}

// AllPets returns every pet in the world, active first.
func (w *World) AllPets() []model.RawPet {
	w.mu.Lock()
	defer w.mu.Unlock()
	all := make([]model.RawPet, 0, len(w.active)+len(w.inventory)+len(w.hutch))
	all = append(all, w.active...)
	all = append(all, w.inventory...)
	all = append(all, w.hutch...)
	return all
}

// Swap replaces an active pet with an inventory pet; the displaced pet
// lands in the inventory.
func (w *World) Swap(activeID, newID string) error {
	w.mu.Lock()
	ai := indexOf(w.active, activeID)
	ni := indexOf(w.inventory, newID)
	if ai < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%s is not active", activeID)
	}
	if ni < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%s is not in inventory", newID)
	}
	out := w.active[ai]
	w.active[ai] = w.inventory[ni]
	w.inventory = slices.Delete(w.inventory, ni, ni+1)
	w.inventory = append(w.inventory, out)
	w.mu.Unlock()

	w.changed("active")
	w.changed("inventory")
	return nil
}

// Place moves an inventory pet into an open active slot.
func (w *World) Place(id string) error {
	w.mu.Lock()
	ni := indexOf(w.inventory, id)
	if ni < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%s is not in inventory", id)
	}
	if len(w.active) >= model.TeamSlots {
		w.mu.Unlock()
		return fmt.Errorf("no open active slot")
	}
	w.active = append(w.active, w.inventory[ni])
	w.inventory = slices.Delete(w.inventory, ni, ni+1)
	w.mu.Unlock()

	w.changed("active")
	w.changed("inventory")
	return nil
}

// Store moves an active pet back into the inventory.
func (w *World) Store(id string) error {
	w.mu.Lock()
	ai := indexOf(w.active, id)
	if ai < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%s is not active", id)
	}
	if len(w.inventory) >= w.invCap {
		w.mu.Unlock()
		return fmt.Errorf("inventory is full")
	}
	w.inventory = append(w.inventory, w.active[ai])
	w.active = slices.Delete(w.active, ai, ai+1)
	w.mu.Unlock()

	w.changed("active")
	w.changed("inventory")
	return nil
}

// PutInHutch moves an inventory pet into the hutch.
func (w *World) PutInHutch(id string) error {
	w.mu.Lock()
	ni := indexOf(w.inventory, id)
	if ni < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%s is not in inventory", id)
	}
	if len(w.hutch) >= w.hutchCap {
		w.mu.Unlock()
		return fmt.Errorf("hutch is full")
	}
	w.hutch = append(w.hutch, w.inventory[ni])
	w.inventory = slices.Delete(w.inventory, ni, ni+1)
	w.mu.Unlock()

	w.changed("inventory")
	w.changed("hutch")
	w.changed("hutch_space")
	return nil
}

// Retrieve moves a hutch pet into the inventory.
func (w *World) Retrieve(id string) error {
	w.mu.Lock()
	hi := indexOf(w.hutch, id)
	if hi < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%s is not in hutch", id)
	}
	if len(w.inventory) >= w.invCap {
		w.mu.Unlock()
		return fmt.Errorf("inventory is full")
	}
	w.inventory = append(w.inventory, w.hutch[hi])
	w.hutch = slices.Delete(w.hutch, hi, hi+1)
	w.mu.Unlock()

	w.changed("inventory")
	w.changed("hutch")
	w.changed("hutch_space")
	return nil
}

func (w *World) changed(kind string) {
	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()
	if fn != nil {
		fn(kind)
	}
}

func indexOf(pets []model.RawPet, id string) int {
	return slices.IndexFunc(pets, func(p model.RawPet) bool { return p.ID == id })
}
