package gamesim

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/okian/menagerie/internal/adapters/gamebridge"
	"github.com/okian/menagerie/pkg/logger"
)

// Server serves the game websocket protocol over a World.
type Server struct {
	world    *World
	upgrader websocket.Upgrader
	logger   logger.Logger

	mu       sync.Mutex
	sessions map[*session]struct{}
}

type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *session) write(f gamebridge.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(f)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New serves the given world. The world's change notifications are
// wired to connected-client pushes.
func New(world *World, opts ...Option) *Server {
	s := &Server{
		world:    world,
		logger:   logger.Get().Named("gamesim"),
		sessions: make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	world.mu.Lock()
	world.onChange = s.pushChange
	world.mu.Unlock()
	return s
}

// Handler returns the websocket endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn(r.Context(), "upgrade failed", logger.Error(err))
			return
		}
		sess := &session{conn: conn}
		s.mu.Lock()
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()

		go s.serve(sess)
	})
}

func (s *Server) serve(sess *session) {
	ctx := context.Background()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		_ = sess.conn.Close()
	}()

	for {
		var f gamebridge.Frame
		if err := sess.conn.ReadJSON(&f); err != nil {
			return
		}
		reply := s.handle(ctx, f)
		reply.Seq = f.Seq
		reply.Type = f.Type
		if err := sess.write(reply); err != nil {
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, f gamebridge.Frame) gamebridge.Frame {
	if s.world.isFailing(f.Type) {
		return gamebridge.Frame{Error: "simulated failure"}
	}

	switch f.Type {
	case gamebridge.MsgGetActive:
		return payloadFrame(s.world.Active())
	case gamebridge.MsgGetInventory:
		return payloadFrame(s.world.Inventory())
	case gamebridge.MsgGetHutch:
		return payloadFrame(s.world.Hutch())
	case gamebridge.MsgGetHutchSpace:
		return payloadFrame(gamebridge.SpacePayload{Free: s.world.HutchFree()})
	case gamebridge.MsgGetFavorites:
		return payloadFrame(gamebridge.FavoritesPayload{IDs: s.world.Favorites()})
	case gamebridge.MsgSwapPet:
		var req gamebridge.SwapRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil {
			return gamebridge.Frame{Error: "malformed payload"}
		}
		return errorFrame(s.world.Swap(req.ActiveID, req.NewID))
	case gamebridge.MsgPlacePet:
		return errorFrame(s.petOp(f.Payload, s.world.Place))
	case gamebridge.MsgStorePet:
		return errorFrame(s.petOp(f.Payload, s.world.Store))
	case gamebridge.MsgPutInHutch:
		return errorFrame(s.petOp(f.Payload, s.world.PutInHutch))
	case gamebridge.MsgRetrieveFromHutch:
		return errorFrame(s.petOp(f.Payload, s.world.Retrieve))
	default:
		s.logger.Debug(ctx, "unknown request", logger.String("type", f.Type))
		return gamebridge.Frame{Error: "unknown request type"}
	}
}

func (s *Server) petOp(payload json.RawMessage, op func(string) error) error {
	var req gamebridge.PetRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	return op(req.ID)
}

func payloadFrame(v any) gamebridge.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		return gamebridge.Frame{Error: err.Error()}
	}
	return gamebridge.Frame{Payload: b}
}

func errorFrame(err error) gamebridge.Frame {
	if err != nil {
		return gamebridge.Frame{Error: err.Error()}
	}
	return gamebridge.Frame{Payload: json.RawMessage(`{}`)}
}

func (s *Server) pushChange(kind string) {
	var msgType string
	switch kind {
	case "active":
		msgType = gamebridge.MsgActiveChanged
	case "inventory":
		msgType = gamebridge.MsgInventoryChanged
	case "hutch":
		msgType = gamebridge.MsgHutchChanged
	case "hutch_space":
		msgType = gamebridge.MsgHutchSpaceChanged
	default:
		return
	}
	s.broadcast(gamebridge.Frame{Type: msgType})
}

// EmitAbility pushes one ability event to every connected client.
func (s *Server) EmitAbility(ev gamebridge.WireEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.broadcast(gamebridge.Frame{Type: gamebridge.MsgAbilityEvent, Payload: b})
}

func (s *Server) broadcast(f gamebridge.Frame) {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.write(f); err != nil {
			s.logger.Debug(context.Background(), "push failed", logger.Error(err))
		}
	}
}
