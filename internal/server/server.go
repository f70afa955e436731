// Package server hosts rooms over HTTP: the room document for remote
// clients, a websocket hub for broadcasts and one server-side combat store
// per room for the combat API.
package server

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/combat"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/enemy"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/realtime"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/stats"
)

// RoomLister is implemented by document stores that can enumerate rooms.
type RoomLister interface {
	Rooms(ctx context.Context) ([]string, error)
}

// Server is the HTTP surface of one process. Create it with New.
type Server struct {
	docs   combat.Document
	bus    *realtime.Bus
	hub    *realtime.Hub
	stats  *stats.Store
	logger *zap.Logger
	sugar  *zap.SugaredLogger

	overflow     enemy.OverflowPolicy
	writeTimeout time.Duration
	newRoller    func() (*engine.Roller, error)
	roller       *engine.Roller
	version      string
	buildTime    string

	mu    sync.Mutex
	rooms map[string]*room

	router *mux.Router
}

// room is the server-side combat participant of one room.
type room struct {
	store *combat.Store
	stop  []func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStats sets the stats tally fed by every room store.
func WithStats(st *stats.Store) Option { return func(s *Server) { s.stats = st } }

// WithOverflow sets the squad overflow policy of room registries.
func WithOverflow(p enemy.OverflowPolicy) Option { return func(s *Server) { s.overflow = p } }

// WithWriteTimeout bounds each room document write.
func WithWriteTimeout(d time.Duration) Option { return func(s *Server) { s.writeTimeout = d } }

// WithRollerFactory replaces the random roller used by new rooms and the
// dice endpoints.
func WithRollerFactory(fn func() (*engine.Roller, error)) Option {
	return func(s *Server) { s.newRoller = fn }
}

// WithVersion sets the build metadata reported by /version.
func WithVersion(version, buildTime string) Option {
	return func(s *Server) {
		s.version = version
		s.buildTime = buildTime
	}
}

// New returns a server over docs and bus.
func New(docs combat.Document, bus *realtime.Bus, opts ...Option) (*Server, error) {
	s := &Server{
		docs:      docs,
		bus:       bus,
		logger:    zap.NewNop(),
		newRoller: engine.NewRandomRoller,
		version:   "dev",
		rooms:     make(map[string]*room),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats = stats.New()
	}
	s.sugar = s.logger.Sugar()
	r, err := s.newRoller()
	if err != nil {
		return nil, err
	}
	s.roller = r
	s.hub = realtime.NewHub(bus, docs, realtime.WithHubLogger(s.logger))
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler { return withCORS(s.router) }

// Close stops every room store and drops websocket connections.
func (s *Server) Close() {
	s.hub.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, rm := range s.rooms {
		for _, stop := range rm.stop {
			stop()
		}
		delete(s.rooms, code)
	}
}

func roomCode(raw string) string { return strings.ToUpper(strings.TrimSpace(raw)) }

// room returns the combat store of code, creating and syncing it on first
// use.
func (s *Server) room(ctx context.Context, code string) (*combat.Store, error) {
	code = roomCode(code)
	if code == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "room code is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm, ok := s.rooms[code]; ok {
		return rm.store, nil
	}

	roller, err := s.newRoller()
	if err != nil {
		return nil, err
	}
	session := realtime.NewSession(realtime.NewClientID(), code, s.bus, realtime.WithSessionLogger(s.logger))
	store, err := combat.NewStore(code, s.docs,
		combat.WithPublisher(session),
		combat.WithRoller(roller),
		combat.WithRegistry(enemy.NewRegistry(enemy.WithOverflow(s.overflow), enemy.WithLogger(s.logger))),
		combat.WithNotifier(s.stats),
		combat.WithLogger(s.logger),
		combat.WithWriteTimeout(s.writeTimeout),
	)
	if err != nil {
		return nil, err
	}
	if err := store.Sync(ctx); err != nil {
		return nil, err
	}
	rm := &room{store: store}
	unwatch, err := store.Watch()
	if err != nil {
		return nil, err
	}
	rm.stop = append(rm.stop, unwatch)
	unlisten, err := session.Start(store.HandleMessage)
	if err != nil {
		unwatch()
		return nil, err
	}
	rm.stop = append(rm.stop, unlisten)
	s.rooms[code] = rm
	s.sugar.Infof("room %s: combat store opened", code)
	return store, nil
}

// openRooms lists rooms with a live combat store.
func (s *Server) openRooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
