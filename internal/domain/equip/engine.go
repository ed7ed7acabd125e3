// Package equip converges the game's active roster to a chosen team.
// Targets may live in the active roster, the local inventory, or the
// bounded hutch; the engine issues the minimal remote calls to make the
// active set equal the target set, then runs a reconciliation pass that
// guarantees the end state even when the optimization misses a case.
package equip

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/pkg/logger"
	"github.com/okian/menagerie/pkg/metrics"
)

const (
	defaultActiveCapacity    = model.TeamSlots
	defaultInventoryCapacity = 50
	defaultPickerTimeout     = 20 * time.Second
)

// Mutator issues the game's remote roster mutations. Each call resolves
// before the engine issues the next one.
type Mutator interface {
	// SwapPet replaces activeID in the active roster with newID from the
	// inventory; the displaced pet lands in the inventory.
	SwapPet(ctx context.Context, activeID, newID string) error
	// PlacePet moves an inventory pet into an open active slot.
	PlacePet(ctx context.Context, id string) error
	// StorePet moves an active pet back into the inventory.
	StorePet(ctx context.Context, id string) error
	// PutInHutch moves an inventory pet into the hutch.
	PutInHutch(ctx context.Context, id string) error
	// RetrieveFromHutch moves a hutch pet into the inventory.
	RetrieveFromHutch(ctx context.Context, id string) error
	// FavoriteIDs lists pets the user has favorited; favorites are never
	// auto-relocated to the hutch.
	FavoriteIDs(ctx context.Context) ([]string, error)
}

// RosterView reads live roster state from the game.
type RosterView interface {
	ActiveIDs(ctx context.Context) ([]string, error)
	InventoryIDs(ctx context.Context) ([]string, error)
	HutchIDs(ctx context.Context) ([]string, error)
	HutchFreeSpace(ctx context.Context) (int, error)
}

// Notifier surfaces user-facing messages for fatal run aborts.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Picker asks an external collaborator to choose which inventory pet to
// relocate when a slot must be freed. An empty id means no selection.
type Picker interface {
	PickRelocation(ctx context.Context, candidates []string) (string, error)
}

// Engine runs team equips. Runs are mutually exclusive: a mutex guards
// Use so direct callers cannot interleave remote-call sequences.
type Engine struct {
	mu                sync.Mutex
	mutator           Mutator
	view              RosterView
	notifier          Notifier
	picker            Picker
	pickerTimeout     time.Duration
	logger            logger.Logger
	activeCapacity    int
	inventoryCapacity int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNotifier sets the user-facing notifier for fatal aborts.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithPicker sets the relocation picker. Without one the engine picks
// the first eligible candidate.
func WithPicker(p Picker) Option {
	return func(e *Engine) {
		e.picker = p
	}
}

// WithPickerTimeout bounds how long the engine waits for a picker
// selection; a timeout counts as no selection.
func WithPickerTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pickerTimeout = d
		}
	}
}

// WithActiveCapacity overrides the active roster size.
func WithActiveCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.activeCapacity = n
		}
	}
}

// WithInventoryCapacity overrides the local inventory size.
func WithInventoryCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.inventoryCapacity = n
		}
	}
}

// New constructs an Engine over the given remote mutator and live view.
func New(m Mutator, v RosterView, opts ...Option) *Engine {
	e := &Engine{
		mutator:           m,
		view:              v,
		pickerTimeout:     defaultPickerTimeout,
		logger:            logger.Get().Named("equip"),
		activeCapacity:    defaultActiveCapacity,
		inventoryCapacity: defaultInventoryCapacity,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runState is the engine-private working copy of the roster for one run.
// Remote calls mutate it optimistically; the cleanup pass refreshes the
// hutch free-space count from the live view once before relying on it.
type runState struct {
	targets   []string
	active    []string
	inventory []string
	hutch     []string
	hutchFree int
	favorites []string
	favLoaded bool
	result    model.EquipResult
}

func (st *runState) isTarget(id string) bool {
	return slices.Contains(st.targets, id)
}

// offTargetActive returns the first active pet outside the target set.
func (st *runState) offTargetActive() string {
	for _, id := range st.active {
		if !st.isTarget(id) {
			return id
		}
	}
	return ""
}

func removeID(ids []string, id string) []string {
	if idx := slices.Index(ids, id); idx >= 0 {
		return slices.Delete(ids, idx, idx+1)
	}
	return ids
}

// Use converges the active roster to the team's member set. Targets are
// processed strictly in slot order, one remote call in flight at a time.
// Fatal capacity conditions abort early with the counts accumulated so
// far; any other remote failure only skips its target, to be caught by
// the reconciliation pass.
func (e *Engine) Use(ctx context.Context, team model.Team) (model.EquipResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	metrics.RecordEquipRun()
	defer func() {
		metrics.RecordEquipRunDuration(float64(time.Since(start).Milliseconds()))
	}()

	st, err := e.loadState(ctx, team)
	if err != nil {
		return model.EquipResult{}, err
	}

	for _, id := range st.targets {
		if fatal := e.equipOne(ctx, st, id); fatal != nil {
			metrics.RecordEquipCounts(st.result.Swapped, st.result.Placed, st.result.Skipped)
			return st.result, fatal
		}
	}

	e.cleanup(ctx, st)
	e.reconcile(ctx, st)

	metrics.RecordEquipCounts(st.result.Swapped, st.result.Placed, st.result.Skipped)
	e.logger.Info(ctx, "equip run finished",
		logger.String("team", team.ID),
		logger.Int("swapped", st.result.Swapped),
		logger.Int("placed", st.result.Placed),
		logger.Int("skipped", st.result.Skipped),
	)
	return st.result, nil
}

func (e *Engine) loadState(ctx context.Context, team model.Team) (*runState, error) {
	st := &runState{targets: team.Members()}

	var err error
	if st.active, err = e.view.ActiveIDs(ctx); err != nil {
		return nil, err
	}
	if st.inventory, err = e.view.InventoryIDs(ctx); err != nil {
		return nil, err
	}
	if st.hutch, err = e.view.HutchIDs(ctx); err != nil {
		return nil, err
	}
	if st.hutchFree, err = e.view.HutchFreeSpace(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// equipOne processes a single target id. A non-nil return is fatal for
// the whole run.
func (e *Engine) equipOne(ctx context.Context, st *runState, id string) error {
	if slices.Contains(st.active, id) {
		st.result.Skipped++
		return nil
	}

	if slices.Contains(st.hutch, id) {
		if len(st.inventory) >= e.inventoryCapacity {
			freed, fatal := e.freeInventorySlot(ctx, st)
			if fatal != nil {
				return fatal
			}
			if !freed {
				return nil
			}
		}
		if err := e.mutator.RetrieveFromHutch(ctx, id); err != nil {
			e.logger.Warn(ctx, "retrieve from hutch failed, skipping target",
				logger.String("pet", id), logger.Error(err))
			return nil
		}
		st.hutch = removeID(st.hutch, id)
		st.inventory = append(st.inventory, id)
		st.hutchFree++
	}

	if off := st.offTargetActive(); off != "" {
		if err := e.mutator.SwapPet(ctx, off, id); err != nil {
			e.logger.Warn(ctx, "swap failed, skipping target",
				logger.String("out", off), logger.String("in", id), logger.Error(err))
			return nil
		}
		st.result.Swapped++
		st.active[slices.Index(st.active, off)] = id
		st.inventory = removeID(st.inventory, id)
		st.inventory = append(st.inventory, off)

		// Best effort: tuck the displaced pet into the hutch while there
		// is room, keeping inventory pressure down for later targets.
		if st.hutchFree > 0 {
			if err := e.mutator.PutInHutch(ctx, off); err != nil {
				e.logger.Debug(ctx, "relocating displaced pet failed",
					logger.String("pet", off), logger.Error(err))
			} else {
				st.inventory = removeID(st.inventory, off)
				st.hutch = append(st.hutch, off)
				st.hutchFree--
			}
		}
		return nil
	}

	if len(st.active) < e.activeCapacity {
		if err := e.mutator.PlacePet(ctx, id); err != nil {
			e.logger.Warn(ctx, "place failed, skipping target",
				logger.String("pet", id), logger.Error(err))
			return nil
		}
		st.result.Placed++
		st.active = append(st.active, id)
		st.inventory = removeID(st.inventory, id)
	}
	return nil
}

// freeInventorySlot relocates one non-target, non-favorite inventory pet
// to the hutch. Reports freed=false when the relocation call failed
// (skip the target), or a fatal error when no slot can ever be freed.
func (e *Engine) freeInventorySlot(ctx context.Context, st *runState) (bool, error) {
	candidates := e.relocationCandidates(ctx, st)
	if len(candidates) == 0 {
		e.notify(ctx, "Your inventory is full and every pet in it is needed or favorited.")
		metrics.RecordEquipFailure("inventory_full")
		return false, ErrInventoryFull
	}

	if st.hutchFree <= 0 {
		e.notify(ctx, "The hutch is full, so no inventory slot can be freed to retrieve your team.")
		metrics.RecordEquipFailure("hutch_full")
		return false, ErrHutchFull
	}

	pick := e.choose(ctx, candidates)
	if err := e.mutator.PutInHutch(ctx, pick); err != nil {
		e.logger.Warn(ctx, "relocating inventory pet failed",
			logger.String("pet", pick), logger.Error(err))
		return false, nil
	}
	st.inventory = removeID(st.inventory, pick)
	st.hutch = append(st.hutch, pick)
	st.hutchFree--
	return true, nil
}

func (e *Engine) relocationCandidates(ctx context.Context, st *runState) []string {
	if !st.favLoaded {
		favs, err := e.mutator.FavoriteIDs(ctx)
		if err != nil {
			e.logger.Warn(ctx, "reading favorites failed, assuming none", logger.Error(err))
		}
		st.favorites = favs
		st.favLoaded = true
	}

	var out []string
	for _, id := range st.inventory {
		if st.isTarget(id) || slices.Contains(st.favorites, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// choose asks the picker to select a relocation candidate; no picker, a
// picker error, a timeout, or an off-list answer all fall back to the
// first candidate.
func (e *Engine) choose(ctx context.Context, candidates []string) string {
	if e.picker == nil {
		return candidates[0]
	}
	pctx, cancel := context.WithTimeout(ctx, e.pickerTimeout)
	defer cancel()

	pick, err := e.picker.PickRelocation(pctx, candidates)
	if err != nil || !slices.Contains(candidates, pick) {
		if err != nil {
			e.logger.Debug(ctx, "relocation picker unavailable", logger.Error(err))
		}
		return candidates[0]
	}
	return pick
}

// cleanup relocates off-target actives into the hutch while space
// allows, for teams smaller than the previous active roster. The hutch
// free-space count is re-read from the live view first.
func (e *Engine) cleanup(ctx context.Context, st *runState) {
	if free, err := e.view.HutchFreeSpace(ctx); err == nil {
		st.hutchFree = free
	} else {
		e.logger.Warn(ctx, "refreshing hutch space failed, keeping working count", logger.Error(err))
	}

	for _, id := range slices.Clone(st.active) {
		if st.isTarget(id) {
			continue
		}
		if st.hutchFree <= 0 {
			break
		}
		if err := e.mutator.StorePet(ctx, id); err != nil {
			e.logger.Warn(ctx, "storing leftover active failed",
				logger.String("pet", id), logger.Error(err))
			continue
		}
		st.active = removeID(st.active, id)
		st.inventory = append(st.inventory, id)
		if err := e.mutator.PutInHutch(ctx, id); err != nil {
			e.logger.Warn(ctx, "relocating leftover pet failed",
				logger.String("pet", id), logger.Error(err))
			continue
		}
		st.inventory = removeID(st.inventory, id)
		st.hutch = append(st.hutch, id)
		st.hutchFree--
	}
}

// reconcile re-reads the live active roster and forces the active set to
// equal the target set, regardless of what the earlier passes did.
func (e *Engine) reconcile(ctx context.Context, st *runState) {
	active, err := e.view.ActiveIDs(ctx)
	if err != nil {
		e.logger.Warn(ctx, "reconciliation read failed", logger.Error(err))
		return
	}

	var missing []string
	for _, id := range st.targets {
		if !slices.Contains(active, id) {
			missing = append(missing, id)
		}
	}
	var extras []string
	for _, id := range active {
		if !st.isTarget(id) {
			extras = append(extras, id)
		}
	}

	for _, id := range missing {
		switch {
		case len(extras) > 0:
			off := extras[0]
			if err := e.mutator.SwapPet(ctx, off, id); err != nil {
				e.logger.Warn(ctx, "reconciliation swap failed",
					logger.String("out", off), logger.String("in", id), logger.Error(err))
				continue
			}
			extras = extras[1:]
			st.result.Swapped++
		case len(active) < e.activeCapacity:
			if err := e.mutator.PlacePet(ctx, id); err != nil {
				e.logger.Warn(ctx, "reconciliation place failed",
					logger.String("pet", id), logger.Error(err))
				continue
			}
			active = append(active, id)
			st.result.Placed++
		}
	}

	for _, id := range extras {
		if err := e.mutator.StorePet(ctx, id); err != nil {
			e.logger.Warn(ctx, "reconciliation store failed",
				logger.String("pet", id), logger.Error(err))
		}
	}
}

func (e *Engine) notify(ctx context.Context, message string) {
	if e.notifier != nil {
		e.notifier.Notify(ctx, message)
	}
	e.logger.Warn(ctx, "equip run aborted", logger.String("reason", message))
}
