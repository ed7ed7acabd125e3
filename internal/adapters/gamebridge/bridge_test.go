package gamebridge_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/menagerie/internal/adapters/gamebridge"
	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/internal/domain/roster"
	"github.com/okian/menagerie/internal/gamesim"
	"github.com/okian/menagerie/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fixture struct {
	world  *gamesim.World
	sim    *gamesim.Server
	bridge *gamebridge.Bridge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	world := gamesim.NewWorld()
	sim := gamesim.New(world)
	srv := httptest.NewServer(sim.Handler())
	t.Cleanup(srv.Close)

	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	b := gamebridge.New(addr, gamebridge.WithCallTimeout(2*time.Second))
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return &fixture{world: world, sim: sim, bridge: b}
}

func await(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestBridgeFeeds(t *testing.T) {
	Convey("Given a connected bridge over a seeded world", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		f.world.SeedActive(gamesim.Pet("a1", "raccoon"))
		f.world.SeedInventory(gamesim.Pet("i1", "mole"), gamesim.Pet("i2", "owl"))
		f.world.SeedHutch(gamesim.Pet("h1", "toad"))

		feeds := f.bridge.Feeds()

		Convey("Each feed serves its slice of the world", func() {
			active, err := feeds.Active.Get(ctx)
			So(err, ShouldBeNil)
			So(active, ShouldHaveLength, 1)
			So(active[0].ID, ShouldEqual, "a1")

			inventory, err := feeds.Inventory.Get(ctx)
			So(err, ShouldBeNil)
			So(inventory, ShouldHaveLength, 2)

			hutch, err := feeds.Hutch.Get(ctx)
			So(err, ShouldBeNil)
			So(hutch[0].Species, ShouldEqual, "toad")

			free, err := feeds.HutchSpace.Get(ctx)
			So(err, ShouldBeNil)
			So(free, ShouldEqual, 24)
		})

		Convey("Watchers hear server pushes", func() {
			// Round-trip first so the session is registered for pushes.
			_, err := feeds.Active.Get(ctx)
			So(err, ShouldBeNil)

			notified := make(chan struct{}, 4)
			unsub, err := feeds.Active.Watch(ctx, func() { notified <- struct{}{} })
			So(err, ShouldBeNil)
			defer unsub()

			f.world.SeedActive(gamesim.Pet("a2", "ferret"))
			await(t, notified, "active change push")

			active, err := feeds.Active.Get(ctx)
			So(err, ShouldBeNil)
			So(active[0].ID, ShouldEqual, "a2")
		})
	})
}

func TestBridgeMutations(t *testing.T) {
	Convey("Given a connected bridge over a seeded world", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		f.world.SeedActive(gamesim.Pet("a1", "raccoon"))
		f.world.SeedInventory(gamesim.Pet("i1", "mole"))
		f.world.SetFavorites("i1")

		Convey("A swap goes through and the world follows the game rules", func() {
			So(f.bridge.SwapPet(ctx, "a1", "i1"), ShouldBeNil)

			active, err := f.bridge.ActiveIDs(ctx)
			So(err, ShouldBeNil)
			So(active, ShouldResemble, []string{"i1"})

			inventory, err := f.bridge.InventoryIDs(ctx)
			So(err, ShouldBeNil)
			So(inventory, ShouldResemble, []string{"a1"})
		})

		Convey("A rejected call surfaces as a remote error", func() {
			err := f.bridge.SwapPet(ctx, "nope", "i1")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, gamebridge.ErrRemote), ShouldBeTrue)
		})

		Convey("An injected failure surfaces as a remote error", func() {
			f.world.SetFailing(gamebridge.MsgPlacePet, true)
			err := f.bridge.PlacePet(ctx, "i1")
			So(errors.Is(err, gamebridge.ErrRemote), ShouldBeTrue)
		})

		Convey("Favorites round-trip", func() {
			favs, err := f.bridge.FavoriteIDs(ctx)
			So(err, ShouldBeNil)
			So(favs, ShouldResemble, []string{"i1"})
		})
	})
}

func TestBridgeAbilityEvents(t *testing.T) {
	Convey("Given a connected bridge with an event subscriber", t, func() {
		f := newFixture(t)

		// A synchronous round-trip guarantees the sim has registered the
		// session before we broadcast to it.
		_, err := f.bridge.HutchFreeSpace(context.Background())
		So(err, ShouldBeNil)

		events := make(chan model.AbilityEvent, 1)
		unsub := f.bridge.Events(func(ev model.AbilityEvent) { events <- ev })
		defer unsub()

		Convey("When the sim emits an ability trigger", func() {
			mag := 75.0
			f.sim.EmitAbility(gamebridge.WireEvent{
				PetID:       "p1",
				AbilityID:   "forage",
				PerformedAt: 12345,
				Magnitude:   &mag,
				Payload:     map[string]any{"item": "truffle"},
			})

			Convey("Then the subscriber receives the decoded event", func() {
				select {
				case ev := <-events:
					So(ev.PetID, ShouldEqual, "p1")
					So(ev.AbilityID, ShouldEqual, "forage")
					So(ev.PerformedAt, ShouldEqual, 12345)
					So(*ev.Magnitude, ShouldEqual, 75.0)
					So(ev.Payload["item"], ShouldEqual, "truffle")
				case <-time.After(2 * time.Second):
					t.Fatal("no ability event received")
				}
			})
		})
	})
}

func TestBridgeNotConnected(t *testing.T) {
	Convey("Given a bridge that never connected", t, func() {
		b := gamebridge.New("ws://127.0.0.1:1/ws")

		Convey("Calls fail with a clear sentinel", func() {
			_, err := b.ActiveIDs(context.Background())
			So(errors.Is(err, gamebridge.ErrNotConnected), ShouldBeTrue)
		})
	})
}

func TestBridgePushesReachSynchronizer(t *testing.T) {
	Convey("Given a roster synchronizer running over the bridge", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		f.world.SeedActive(gamesim.Pet("a1", "raccoon"))

		s := roster.New(f.bridge.Feeds())
		defer s.Close()

		So(s.Pets(ctx), ShouldHaveLength, 1)

		Convey("When the game pushes an active-roster change", func() {
			// The watch callback re-fetches through the bridge, so this
			// only converges if pushes are dispatched off the read pump.
			f.world.SeedActive(gamesim.Pet("a1", "raccoon"), gamesim.Pet("a2", "owl"))

			Convey("Then the merged roster picks it up", func() {
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) && len(s.Pets(ctx)) != 2 {
					time.Sleep(20 * time.Millisecond)
				}

				pets := s.Pets(ctx)
				So(pets, ShouldHaveLength, 2)
				ids := []string{pets[0].ID, pets[1].ID}
				So(ids, ShouldContain, "a2")
			})
		})
	})
}
