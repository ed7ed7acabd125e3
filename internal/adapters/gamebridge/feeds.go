package gamebridge

import (
	"context"
	"sync"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/internal/domain/roster"
)

// petFeed adapts one server-pushed pet list to the roster feed
// contract. Get issues a request; Watch callbacks fire whenever the
// game pushes the matching *_changed frame.
type petFeed struct {
	bridge  *Bridge
	getType string

	mu       sync.Mutex
	watchers map[int]func()
	nextID   int
}

func (f *petFeed) Get(ctx context.Context) ([]model.RawPet, error) {
	return f.bridge.getPets(ctx, f.getType)
}

func (f *petFeed) Watch(ctx context.Context, fn func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchers == nil {
		f.watchers = make(map[int]func())
	}
	id := f.nextID
	f.nextID++
	f.watchers[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.watchers, id)
	}, nil
}

func (f *petFeed) notify() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.watchers))
	for _, fn := range f.watchers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// countFeed adapts the hutch free-space counter the same way.
type countFeed struct {
	bridge *Bridge

	mu       sync.Mutex
	watchers map[int]func()
	nextID   int
}

func (f *countFeed) Get(ctx context.Context) (int, error) {
	return f.bridge.HutchFreeSpace(ctx)
}

func (f *countFeed) Watch(ctx context.Context, fn func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchers == nil {
		f.watchers = make(map[int]func())
	}
	id := f.nextID
	f.nextID++
	f.watchers[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.watchers, id)
	}, nil
}

func (f *countFeed) notify() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.watchers))
	for _, fn := range f.watchers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Feeds bundles the bridge's feeds for the roster synchronizer.
func (b *Bridge) Feeds() roster.Feeds {
	return roster.Feeds{
		Active:     b.active,
		Inventory:  b.inventory,
		Hutch:      b.hutch,
		HutchSpace: b.space,
	}
}
