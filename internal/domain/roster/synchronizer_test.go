package roster_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/internal/domain/roster"
	"github.com/okian/menagerie/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeFeed is a scriptable in-memory Feed delivering change callbacks
// synchronously from Set.
type fakeFeed struct {
	mu       sync.Mutex
	raws     []model.RawPet
	getErr   error
	watchErr error
	watchers []func()
}

func (f *fakeFeed) Get(ctx context.Context) ([]model.RawPet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]model.RawPet, len(f.raws))
	copy(out, f.raws)
	return out, nil
}

func (f *fakeFeed) Watch(ctx context.Context, fn func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	f.watchers = append(f.watchers, fn)
	return func() {}, nil
}

func (f *fakeFeed) Set(raws ...model.RawPet) {
	f.mu.Lock()
	f.raws = raws
	watchers := append([]func(){}, f.watchers...)
	f.mu.Unlock()
	for _, fn := range watchers {
		fn()
	}
}

type fakeCount struct {
	mu sync.Mutex
	n  int
}

func (f *fakeCount) Get(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n, nil
}

func (f *fakeCount) Watch(ctx context.Context, fn func()) (func(), error) {
	return func() {}, nil
}

func raw(id, species string) model.RawPet {
	return model.RawPet{ID: id, Species: species}
}

func newFixture() (*fakeFeed, *fakeFeed, *fakeFeed, *roster.Synchronizer) {
	active, inv, hutch := &fakeFeed{}, &fakeFeed{}, &fakeFeed{}
	s := roster.New(roster.Feeds{
		Active:     active,
		Inventory:  inv,
		Hutch:      hutch,
		HutchSpace: &fakeCount{n: 25},
	})
	return active, inv, hutch, s
}

func ids(pets []model.Pet) map[string]string {
	out := make(map[string]string, len(pets))
	for _, p := range pets {
		out[p.ID] = p.Species
	}
	return out
}

func TestSynchronizerMergePriority(t *testing.T) {
	Convey("Given a pet present in more than one feed", t, func() {
		ctx := context.Background()
		active, inv, hutch, s := newFixture()
		defer s.Close()

		hutch.raws = []model.RawPet{raw("x", "hutch-version"), raw("h", "hutch-only")}
		inv.raws = []model.RawPet{raw("x", "inventory-version"), raw("y", "inventory-version")}
		active.raws = []model.RawPet{raw("y", "active-version")}

		Convey("When reading the merged roster", func() {
			merged := ids(s.Pets(ctx))

			Convey("Then inventory beats hutch and active beats inventory", func() {
				So(merged["x"], ShouldEqual, "inventory-version")
				So(merged["y"], ShouldEqual, "active-version")
				So(merged["h"], ShouldEqual, "hutch-only")
				So(merged, ShouldHaveLength, 3)
			})
		})
	})
}

func TestSynchronizerSignatureSuppression(t *testing.T) {
	Convey("Given a started synchronizer with a change watcher", t, func() {
		ctx := context.Background()
		_, inv, _, s := newFixture()
		defer s.Close()

		inv.raws = []model.RawPet{{ID: "a", Species: "wombat", XP: 1, Hunger: 0.3}}
		s.Pets(ctx)

		var rebuilds int
		s.OnChange(func([]model.Pet) { rebuilds++ })

		Convey("When the inventory snapshot changes only in volatile fields", func() {
			inv.Set(model.RawPet{ID: "a", Species: "wombat", XP: 500, Hunger: 0.9})

			Convey("Then no rebuild notification fires", func() {
				So(rebuilds, ShouldEqual, 0)
			})
		})

		Convey("When the inventory snapshot changes in a stable field", func() {
			nick := "Biscuit"
			inv.Set(model.RawPet{ID: "a", Species: "wombat", Nickname: &nick})

			Convey("Then a rebuild notification fires", func() {
				So(rebuilds, ShouldEqual, 1)
			})
		})

		Convey("When the inventory id set changes", func() {
			inv.Set(
				model.RawPet{ID: "a", Species: "wombat"},
				model.RawPet{ID: "b", Species: "axolotl"},
			)

			Convey("Then a rebuild notification fires", func() {
				So(rebuilds, ShouldEqual, 1)
			})
		})
	})
}

func TestSynchronizerHutchUnsuppressedByDefault(t *testing.T) {
	Convey("Given a started synchronizer", t, func() {
		ctx := context.Background()
		_, _, hutch, s := newFixture()
		defer s.Close()

		hutch.raws = []model.RawPet{{ID: "h", Species: "wombat", XP: 1}}
		s.Pets(ctx)

		var rebuilds int
		s.OnChange(func([]model.Pet) { rebuilds++ })

		Convey("When the hutch snapshot changes only in volatile fields", func() {
			hutch.Set(model.RawPet{ID: "h", Species: "wombat", XP: 2})

			Convey("Then the rebuild still fires (hutch has no suppression)", func() {
				So(rebuilds, ShouldEqual, 1)
			})
		})
	})
}

func TestSynchronizerUniformSuppressionOption(t *testing.T) {
	Convey("Given a synchronizer with uniform suppression enabled", t, func() {
		ctx := context.Background()
		active, inv, hutch := &fakeFeed{}, &fakeFeed{}, &fakeFeed{}
		s := roster.New(roster.Feeds{
			Active: active, Inventory: inv, Hutch: hutch, HutchSpace: &fakeCount{},
		}, roster.WithUniformSuppression(true))
		defer s.Close()

		hutch.raws = []model.RawPet{{ID: "h", Species: "wombat", XP: 1}}
		s.Pets(ctx)

		var rebuilds int
		s.OnChange(func([]model.Pet) { rebuilds++ })

		Convey("When the hutch snapshot changes only in volatile fields", func() {
			hutch.Set(model.RawPet{ID: "h", Species: "wombat", XP: 2})

			Convey("Then the rebuild is suppressed", func() {
				So(rebuilds, ShouldEqual, 0)
			})
		})
	})
}

func TestSynchronizerFeedFailure(t *testing.T) {
	Convey("Given feeds where one source fails", t, func() {
		ctx := context.Background()
		active, inv, hutch := &fakeFeed{}, &fakeFeed{}, &fakeFeed{}
		active.getErr = errors.New("game not ready")
		inv.raws = []model.RawPet{raw("a", "axolotl")}

		s := roster.New(roster.Feeds{
			Active: active, Inventory: inv, Hutch: hutch, HutchSpace: &fakeCount{},
		})
		defer s.Close()

		Convey("When reading the merged roster", func() {
			merged := s.Pets(ctx)

			Convey("Then the failure is swallowed and other feeds still merge", func() {
				So(ids(merged), ShouldContainKey, "a")
				So(merged, ShouldHaveLength, 1)
			})
		})

		Convey("When a refresh fails after a good initial fetch", func() {
			inv.Set(raw("a", "axolotl"), raw("b", "wombat"))
			So(ids(s.Pets(ctx)), ShouldContainKey, "b")

			inv.mu.Lock()
			inv.getErr = errors.New("transient")
			inv.mu.Unlock()
			inv.Set(raw("z", "ignored"))

			Convey("Then the prior snapshot is kept", func() {
				merged := ids(s.Pets(ctx))
				So(merged, ShouldContainKey, "b")
				So(merged, ShouldNotContainKey, "z")
			})
		})
	})
}

func TestSynchronizerStartIsIdempotent(t *testing.T) {
	Convey("Given a synchronizer", t, func() {
		ctx := context.Background()
		_, inv, _, s := newFixture()
		defer s.Close()
		inv.raws = []model.RawPet{raw("a", "axolotl")}

		Convey("When Pets is called repeatedly", func() {
			s.Pets(ctx)
			s.Pets(ctx)
			s.Pets(ctx)

			Convey("Then each feed is subscribed exactly once", func() {
				inv.mu.Lock()
				defer inv.mu.Unlock()
				So(inv.watchers, ShouldHaveLength, 1)
			})
		})
	})
}

func TestSynchronizerSnapshotsByFeed(t *testing.T) {
	Convey("Given distinct pets in each feed", t, func() {
		ctx := context.Background()
		active, inv, hutch, s := newFixture()
		defer s.Close()
		active.raws = []model.RawPet{raw("a", "s")}
		inv.raws = []model.RawPet{raw("i", "s")}
		hutch.raws = []model.RawPet{raw("h", "s")}

		Convey("Then per-feed snapshots report their own pets", func() {
			So(ids(s.ActivePets(ctx)), ShouldContainKey, "a")
			So(ids(s.InventoryPets(ctx)), ShouldContainKey, "i")
			So(ids(s.HutchPets(ctx)), ShouldContainKey, "h")
		})
	})
}
