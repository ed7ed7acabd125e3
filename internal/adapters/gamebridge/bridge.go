// Package gamebridge speaks the game's websocket protocol. It is the
// one concrete source of the pet feeds, the ability-event stream, and
// the remote roster mutations: JSON frames over a single connection,
// requests correlated to responses by sequence number, server pushes
// fanned out to feed watchers.
package gamebridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/pkg/logger"
	"github.com/okian/menagerie/pkg/metrics"
)

const (
	defaultCallTimeout = 10 * time.Second

	// pushBuffer bounds the queue between the read pump and the push
	// dispatcher.
	pushBuffer = 256
)

// Bridge owns the websocket connection to the game. The read pump is
// the only reader; writes are serialized by a mutex.
type Bridge struct {
	addr        string
	dialer      *websocket.Dialer
	callTimeout time.Duration
	logger      logger.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]chan Frame
	closed  bool

	writeMu sync.Mutex
	seq     atomic.Uint64

	active    *petFeed
	inventory *petFeed
	hutch     *petFeed
	space     *countFeed

	eventMu  sync.Mutex
	eventCbs map[int]func(model.AbilityEvent)
	nextSub  int
}

// Option applies a configuration option to the Bridge.
type Option func(*Bridge)

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(b *Bridge) {
		if d != nil {
			b.dialer = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithCallTimeout bounds how long a request waits for its response.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.callTimeout = d
		}
	}
}

// New constructs a Bridge for the game at addr (a ws:// URL).
func New(addr string, opts ...Option) *Bridge {
	b := &Bridge{
		addr:        addr,
		dialer:      websocket.DefaultDialer,
		callTimeout: defaultCallTimeout,
		logger:      logger.Get().Named("gamebridge"),
		pending:     make(map[uint64]chan Frame),
		eventCbs:    make(map[int]func(model.AbilityEvent)),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.active = &petFeed{bridge: b, getType: MsgGetActive}
	b.inventory = &petFeed{bridge: b, getType: MsgGetInventory}
	b.hutch = &petFeed{bridge: b, getType: MsgGetHutch}
	b.space = &countFeed{bridge: b}
	return b
}

// Connect dials the game and starts the read pump.
func (b *Bridge) Connect(ctx context.Context) error {
	conn, _, err := b.dialer.DialContext(ctx, b.addr, nil)
	if err != nil {
		return fmt.Errorf("dial game at %s: %w", b.addr, err)
	}

	b.mu.Lock()
	b.conn = conn
	b.closed = false
	b.mu.Unlock()

	// Pushes are handed off to a dispatcher goroutine: watch callbacks
	// re-fetch through the bridge, and the responses they wait on can
	// only be delivered by the read pump, so the pump itself must never
	// run them.
	pushes := make(chan Frame, pushBuffer)
	go b.dispatchPushes(pushes)
	go b.readPump(pushes)
	b.logger.Info(ctx, "connected to game", logger.String("addr", b.addr))
	return nil
}

// Close tears down the connection; in-flight calls fail.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.closed = true
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (b *Bridge) readPump(pushes chan<- Frame) {
	ctx := context.Background()
	defer close(pushes)

	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			b.failPending(err)
			b.mu.Lock()
			closed := b.closed
			b.mu.Unlock()
			if !closed {
				b.logger.Error(ctx, "game connection lost", logger.Error(err))
			}
			return
		}

		if f.Seq != 0 {
			b.mu.Lock()
			ch, ok := b.pending[f.Seq]
			delete(b.pending, f.Seq)
			b.mu.Unlock()
			if ok {
				ch <- f
			}
			continue
		}

		select {
		case pushes <- f:
		default:
			// Feeds re-fetch full state on the next push, so dropping
			// under sustained overflow loses no roster data.
			b.logger.Warn(ctx, "push buffer full, dropping frame",
				logger.String("type", f.Type))
		}
	}
}

// dispatchPushes runs push frames in order off the read pump, so a
// watch callback blocking on a correlated call cannot stall reads.
func (b *Bridge) dispatchPushes(pushes <-chan Frame) {
	ctx := context.Background()
	for f := range pushes {
		switch f.Type {
		case MsgActiveChanged:
			b.active.notify()
		case MsgInventoryChanged:
			b.inventory.notify()
		case MsgHutchChanged:
			b.hutch.notify()
		case MsgHutchSpaceChanged:
			b.space.notify()
		case MsgAbilityEvent:
			b.dispatchEvent(ctx, f.Payload)
		default:
			b.logger.Debug(ctx, "ignoring unknown push", logger.String("type", f.Type))
		}
	}
}

func (b *Bridge) failPending(err error) {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[uint64]chan Frame)
	b.mu.Unlock()

	for _, ch := range pending {
		ch <- Frame{Error: err.Error()}
	}
}

func (b *Bridge) dispatchEvent(ctx context.Context, payload json.RawMessage) {
	var we WireEvent
	if err := json.Unmarshal(payload, &we); err != nil {
		b.logger.Warn(ctx, "dropping malformed ability event", logger.Error(err))
		return
	}
	ev := model.AbilityEvent{
		PetID:       we.PetID,
		AbilityID:   we.AbilityID,
		PerformedAt: we.PerformedAt,
		Magnitude:   we.Magnitude,
		Payload:     we.Payload,
	}

	b.eventMu.Lock()
	cbs := make([]func(model.AbilityEvent), 0, len(b.eventCbs))
	for _, cb := range b.eventCbs {
		cbs = append(cbs, cb)
	}
	b.eventMu.Unlock()

	for _, cb := range cbs {
		cb(ev)
	}
}

// Events subscribes to ability triggers; the returned func unsubscribes.
func (b *Bridge) Events(cb func(model.AbilityEvent)) func() {
	b.eventMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.eventCbs[id] = cb
	b.eventMu.Unlock()

	return func() {
		b.eventMu.Lock()
		delete(b.eventCbs, id)
		b.eventMu.Unlock()
	}
}

// call sends one request frame and waits for the correlated response.
func (b *Bridge) call(ctx context.Context, msgType string, payload any) (json.RawMessage, error) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	var raw json.RawMessage
	if payload != nil {
		bts, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = bts
	}

	seq := b.seq.Add(1)
	ch := make(chan Frame, 1)
	b.mu.Lock()
	b.pending[seq] = ch
	b.mu.Unlock()

	start := time.Now()
	b.writeMu.Lock()
	err := conn.WriteJSON(Frame{Type: msgType, Seq: seq, Payload: raw})
	b.writeMu.Unlock()
	if err != nil {
		b.unregister(seq)
		metrics.RecordRemoteCallError(msgType)
		return nil, fmt.Errorf("send %s: %w", msgType, err)
	}

	select {
	case f := <-ch:
		metrics.RecordRemoteCall(msgType, float64(time.Since(start).Milliseconds()))
		if f.Error != "" {
			metrics.RecordRemoteCallError(msgType)
			return nil, fmt.Errorf("%s: %w: %s", msgType, ErrRemote, f.Error)
		}
		return f.Payload, nil
	case <-time.After(b.callTimeout):
		b.unregister(seq)
		metrics.RecordRemoteCallError(msgType)
		return nil, fmt.Errorf("%s: %w", msgType, ErrCallTimeout)
	case <-ctx.Done():
		b.unregister(seq)
		metrics.RecordRemoteCallError(msgType)
		return nil, ctx.Err()
	}
}

func (b *Bridge) unregister(seq uint64) {
	b.mu.Lock()
	delete(b.pending, seq)
	b.mu.Unlock()
}

func (b *Bridge) getPets(ctx context.Context, msgType string) ([]model.RawPet, error) {
	payload, err := b.call(ctx, msgType, nil)
	if err != nil {
		return nil, err
	}
	var pets []model.RawPet
	if err := json.Unmarshal(payload, &pets); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", msgType, err)
	}
	return pets, nil
}

func (b *Bridge) getIDs(ctx context.Context, msgType string) ([]string, error) {
	pets, err := b.getPets(ctx, msgType)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pets))
	for _, p := range pets {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// SwapPet replaces an active pet with an inventory pet.
func (b *Bridge) SwapPet(ctx context.Context, activeID, newID string) error {
	_, err := b.call(ctx, MsgSwapPet, SwapRequest{ActiveID: activeID, NewID: newID})
	return err
}

// PlacePet moves an inventory pet into an open active slot.
func (b *Bridge) PlacePet(ctx context.Context, id string) error {
	_, err := b.call(ctx, MsgPlacePet, PetRequest{ID: id})
	return err
}

// StorePet moves an active pet back into the inventory.
func (b *Bridge) StorePet(ctx context.Context, id string) error {
	_, err := b.call(ctx, MsgStorePet, PetRequest{ID: id})
	return err
}

// PutInHutch moves an inventory pet into the hutch.
func (b *Bridge) PutInHutch(ctx context.Context, id string) error {
	_, err := b.call(ctx, MsgPutInHutch, PetRequest{ID: id})
	return err
}

// RetrieveFromHutch moves a hutch pet into the inventory.
func (b *Bridge) RetrieveFromHutch(ctx context.Context, id string) error {
	_, err := b.call(ctx, MsgRetrieveFromHutch, PetRequest{ID: id})
	return err
}

// FavoriteIDs lists the pets the user has favorited.
func (b *Bridge) FavoriteIDs(ctx context.Context) ([]string, error) {
	payload, err := b.call(ctx, MsgGetFavorites, nil)
	if err != nil {
		return nil, err
	}
	var favs FavoritesPayload
	if err := json.Unmarshal(payload, &favs); err != nil {
		return nil, fmt.Errorf("decode favorites payload: %w", err)
	}
	return favs.IDs, nil
}

// ActiveIDs reads the live active roster ids.
func (b *Bridge) ActiveIDs(ctx context.Context) ([]string, error) {
	return b.getIDs(ctx, MsgGetActive)
}

// InventoryIDs reads the live inventory ids.
func (b *Bridge) InventoryIDs(ctx context.Context) ([]string, error) {
	return b.getIDs(ctx, MsgGetInventory)
}

// HutchIDs reads the live hutch ids.
func (b *Bridge) HutchIDs(ctx context.Context) ([]string, error) {
	return b.getIDs(ctx, MsgGetHutch)
}

// HutchFreeSpace reads the live hutch free-slot count.
func (b *Bridge) HutchFreeSpace(ctx context.Context) (int, error) {
	payload, err := b.call(ctx, MsgGetHutchSpace, nil)
	if err != nil {
		return 0, err
	}
	var sp SpacePayload
	if err := json.Unmarshal(payload, &sp); err != nil {
		return 0, fmt.Errorf("decode hutch space payload: %w", err)
	}
	return sp.Free, nil
}
