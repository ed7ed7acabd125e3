package gamesim

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/okian/menagerie/internal/adapters/gamebridge"
	"github.com/okian/menagerie/pkg/logger"
)

// Traffic shaping for the scripted event stream.
const (
	defaultEventInterval = 2 * time.Second

	// duplicateChance replays the previous event verbatim to exercise
	// watermark rejection downstream.
	duplicateChance = 0.2
	// noMagnitudeChance omits the magnitude to exercise hunger backfill.
	noMagnitudeChance = 0.25
	// zeroMagnitudeChance emits a zero magnitude to exercise the noise
	// filter.
	zeroMagnitudeChance = 0.1
)

var scriptAbilities = []string{
	"forage", "harvest-boost", "xp-share", "hunger-restore", "seed-finder", "scare", "moon-howl",
}

// Script emits a continuous stream of plausible-and-messy ability
// events: duplicates, missing magnitudes, and zero-magnitude noise mixed
// in with good traffic.
type Script struct {
	server   *Server
	world    *World
	interval time.Duration
	logger   logger.Logger
	last     *gamebridge.WireEvent
}

// ScriptOption applies a configuration option to the Script.
type ScriptOption func(*Script)

// WithInterval sets the time between emitted events.
func WithInterval(d time.Duration) ScriptOption {
	return func(s *Script) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewScript builds an event script for the given server and world.
func NewScript(server *Server, world *World, opts ...ScriptOption) *Script {
	s := &Script{
		server:   server,
		world:    world,
		interval: defaultEventInterval,
		logger:   logger.Get().Named("gamesim.script"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run emits events until ctx is canceled.
func (s *Script) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emitOne(ctx)
		}
	}
}

func (s *Script) emitOne(ctx context.Context) {
	if s.last != nil && rand.Float64() < duplicateChance {
		s.server.EmitAbility(*s.last)
		s.logger.Debug(ctx, "replayed duplicate event", logger.String("pet", s.last.PetID))
		return
	}

	pets := s.world.AllPets()
	if len(pets) == 0 {
		return
	}
	pet := pets[rand.IntN(len(pets))]

	ev := gamebridge.WireEvent{
		PetID:       pet.ID,
		AbilityID:   scriptAbilities[rand.IntN(len(scriptAbilities))],
		PerformedAt: time.Now().UnixMilli(),
	}
	switch roll := rand.Float64(); {
	case roll < zeroMagnitudeChance:
		zero := 0.0
		ev.Magnitude = &zero
	case roll < zeroMagnitudeChance+noMagnitudeChance:
		// leave Magnitude nil
	default:
		mag := 1 + rand.Float64()*99
		ev.Magnitude = &mag
	}
	if ev.AbilityID == "forage" {
		items := []string{"truffle", "acorn", "shiny pebble", "old boot"}
		ev.Payload = map[string]any{"item": items[rand.IntN(len(items))]}
	}

	s.last = &ev
	s.server.EmitAbility(ev)
}
