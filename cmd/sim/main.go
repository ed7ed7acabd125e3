// Command sim runs a fake game over a websocket for manual end-to-end
// runs: point the daemon's game_addr at it and it serves roster feeds,
// applies equip mutations and streams scripted ability events.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/menagerie/internal/gamesim"
	"github.com/okian/menagerie/pkg/logger"
)

const (
	defaultAddr     = ":9777"
	defaultPets     = 12
	defaultInterval = 2 * time.Second
)

var species = []string{
	"sp:otter", "sp:raccoon", "sp:crow", "sp:hedgehog", "sp:ferret", "sp:toad",
}

func main() {
	var (
		addr     = flag.String("addr", defaultAddr, "listen address for the websocket game server")
		pets     = flag.Int("pets", defaultPets, "number of pets to seed across the roster sections")
		interval = flag.Duration("interval", defaultInterval, "time between scripted ability events")
		hutchCap = flag.Int("hutch", 25, "hutch capacity")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	world := gamesim.NewWorld(gamesim.WithHutchCapacity(*hutchCap))
	seedWorld(world, *pets)

	server := gamesim.New(world)
	script := gamesim.NewScript(server, world, gamesim.WithInterval(*interval))
	go script.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", server.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Get().Info(ctx, "game simulator listening",
			logger.String("addr", *addr), logger.Int("pets", *pets))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("simulator failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// seedWorld spreads n pets over the three sections: a full active team
// first, then inventory and hutch alternating.
func seedWorld(world *gamesim.World, n int) {
	for i := 0; i < n; i++ {
		pet := gamesim.Pet(fmt.Sprintf("pet-%02d", i), species[i%len(species)])
		switch {
		case i < 3:
			world.SeedActive(pet)
		case i%2 == 0:
			world.SeedInventory(pet)
		default:
			world.SeedHutch(pet)
		}
	}
}
