package combat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/enemy"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/ship"
)

const defaultWriteTimeout = 5 * time.Second

// Store is the combat state of one room as seen by one client. It is safe
// for concurrent use.
type Store struct {
	room         string
	doc          Document
	pub          Publisher
	roller       *engine.Roller
	registry     *enemy.Registry
	notifier     Notifier
	logger       *zap.SugaredLogger
	now          func() time.Time
	newID        func() string
	writeTimeout time.Duration

	mu          sync.Mutex
	state       models.CombatState
	ship        *models.Ship
	version     uint64
	shipVersion uint64

	persistMu sync.Mutex
	persisted uint64
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher sets the broadcast publisher. Without one the store only
// writes through to the document.
func WithPublisher(p Publisher) Option { return func(s *Store) { s.pub = p } }

// WithRoller sets the dice roller.
func WithRoller(r *engine.Roller) Option { return func(s *Store) { s.roller = r } }

// WithRegistry sets the enemy registry used for spawning.
func WithRegistry(r *enemy.Registry) Option { return func(s *Store) { s.registry = r } }

// WithNotifier sets the UI event sink.
func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.Sugar()
		}
	}
}

// WithClock replaces time.Now for log timestamps.
func WithClock(fn func() time.Time) Option { return func(s *Store) { s.now = fn } }

// WithIDs replaces the uuid generator for log entry ids.
func WithIDs(fn func() string) Option { return func(s *Store) { s.newID = fn } }

// WithWriteTimeout bounds each document write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewStore returns a store for room backed by doc. The state starts at the
// initial inactive state until Sync or a document notification arrives.
func NewStore(room string, doc Document, opts ...Option) (*Store, error) {
	s := &Store{
		room:         room,
		doc:          doc,
		notifier:     NopNotifier{},
		logger:       zap.NewNop().Sugar(),
		now:          time.Now,
		newID:        uuid.NewString,
		writeTimeout: defaultWriteTimeout,
		state:        models.NewCombatState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.roller == nil {
		r, err := engine.NewRandomRoller()
		if err != nil {
			return nil, err
		}
		s.roller = r
	}
	if s.registry == nil {
		s.registry = enemy.NewRegistry()
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	return s, nil
}

// Room returns the room code.
func (s *Store) Room() string { return s.room }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() models.CombatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Ship returns a copy of the ship, or nil when the room has none.
func (s *Store) Ship() *models.Ship {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ship == nil {
		return nil
	}
	c := s.ship.Clone()
	return &c
}

// ActiveEnemyCount returns the number of enemies still active.
func (s *Store) ActiveEnemyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return enemy.CountActive(s.state.Enemies)
}

// ========================= Sync =========================

// Sync loads the room document and replaces the local state with it.
func (s *Store) Sync(ctx context.Context) error {
	doc, err := s.doc.Get(ctx, s.room)
	if err != nil {
		return apperrors.Wrap(apperrors.CodePersistenceFailure, fmt.Sprintf("load room %s", s.room), err)
	}
	s.ApplyDocument(doc)
	return nil
}

// Watch subscribes to document changes. Every notification replaces local
// state.
func (s *Store) Watch() (func(), error) {
	unsub, err := s.doc.Subscribe(s.room, s.ApplyDocument)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePersistenceFailure, fmt.Sprintf("watch room %s", s.room), err)
	}
	return unsub, nil
}

// ApplyDocument feeds a document snapshot through the reducer.
func (s *Store) ApplyDocument(doc models.RoomDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, SnapshotUpdate{State: doc.SpaceCombat})
	if doc.Ship != nil {
		c := doc.Ship.Clone()
		s.ship = &c
	}
}

// Apply feeds an update through the reducer without broadcasting or
// persisting it.
func (s *Store) Apply(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := u.(SnapshotUpdate); ok && snap.Ship != nil {
		c := snap.Ship.Clone()
		s.ship = &c
	}
	s.state = Reduce(s.state, u)
}

// HandleMessage applies a broadcast message that already passed the
// sender and staleness checks.
func (s *Store) HandleMessage(msg models.Message) error {
	u, err := DecodeMessage(msg)
	if err != nil {
		s.logger.Warnf("room %s: drop broadcast from %s: %v", s.room, msg.SenderID, err)
		return err
	}
	s.Apply(u)
	return nil
}

// ========================= Mutation plumbing =========================

// change is what a mutation asks the store to do once the lock is released.
type change struct {
	msgType models.MessageType
	payload any
	events  []Event
}

func (c *change) patch(p models.StatePatch) {
	c.msgType = models.MessageCombatStateUpdate
	c.payload = p
}

func (c *change) emit(e Event) { c.events = append(c.events, e) }

// mutate runs fn under the state lock, then broadcasts, persists and
// notifies outside it.
func (s *Store) mutate(ctx context.Context, fn func(st *models.CombatState, c *change) error) error {
	var c change
	s.mu.Lock()
	if err := fn(&s.state, &c); err != nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	s.mu.Unlock()

	if c.payload != nil {
		s.publish(ctx, c.msgType, c.payload)
	}
	s.persist(ctx)
	for _, e := range c.events {
		e.Room = s.room
		s.notifier.Notify(e)
	}
	return nil
}

// markShip flags the ship for the next write. Callers hold s.mu.
func (s *Store) markShip() { s.shipVersion = s.version + 1 }

func (s *Store) publish(ctx context.Context, t models.MessageType, payload any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, t, payload); err != nil {
		s.logger.Debugf("room %s: broadcast %s failed: %v", s.room, t, err)
	}
}

// persist writes the latest local snapshot. Writes are serialized and a
// snapshot older than one already written is skipped.
func (s *Store) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	version := s.version
	if version <= s.persisted {
		s.mu.Unlock()
		return
	}
	snap := s.state.Clone()
	patch := models.DocumentPatch{SpaceCombat: &snap}
	if s.ship != nil && s.shipVersion > s.persisted {
		sh := s.ship.Clone()
		patch.Ship = &sh
	}
	s.mu.Unlock()

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()
	if err := s.doc.Update(wctx, s.room, patch); err != nil {
		err = apperrors.Wrap(apperrors.CodePersistenceFailure, fmt.Sprintf("write room %s", s.room), err)
		s.logger.Errorf("room %s: %v", s.room, err)
		s.notifier.Notify(Event{Kind: EventSyncIssue, Room: s.room, Err: err})
		return
	}
	s.persisted = version
}

func (s *Store) entry(msg string, t models.LogType, data map[string]any) models.LogEntry {
	return models.LogEntry{
		ID:        s.newID(),
		Timestamp: s.now().UTC(),
		Message:   msg,
		Type:      t,
		Data:      data,
	}
}

func prependLog(st *models.CombatState, e models.LogEntry) {
	log := make([]models.LogEntry, 0, len(st.CombatLog)+1)
	log = append(log, e)
	log = append(log, st.CombatLog...)
	if len(log) > models.MaxCombatLog {
		log = log[:models.MaxCombatLog]
	}
	st.CombatLog = log
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

// ========================= Ship state operations =========================

// EnterCombat activates combat and resets armor, torpedoes, charge and log.
// Enemies are kept.
func (s *Store) EnterCombat(ctx context.Context) error {
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		st.IsActive = true
		st.ShipArmor = models.DefaultShipArmor
		st.TorpedoesLoaded = 0
		st.HyperdriveCharge = 0
		st.CombatLog = []models.LogEntry{}
		if st.StationAssignments == nil {
			st.StationAssignments = map[models.StationID]*models.CharacterID{}
		}
		for _, id := range models.Stations {
			if _, ok := st.StationAssignments[id]; !ok {
				st.StationAssignments[id] = nil
			}
		}
		c.patch(models.StatePatch{
			IsActive:         boolp(true),
			ShipArmor:        intp(st.ShipArmor),
			TorpedoesLoaded:  intp(0),
			HyperdriveCharge: intp(0),
			CombatLog:        []models.LogEntry{},
		})
		s.logger.Infof("room %s: entering space combat", s.room)
		return nil
	})
}

// ExitCombat deactivates combat.
func (s *Store) ExitCombat(ctx context.Context) error {
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		st.IsActive = false
		c.patch(models.StatePatch{IsActive: boolp(false)})
		s.logger.Infof("room %s: space combat ended", s.room)
		return nil
	})
}

// AssignStation puts a character at a station.
func (s *Store) AssignStation(ctx context.Context, station models.StationID, character models.CharacterID) error {
	if !station.Valid() {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown station %q", station))
	}
	if character == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "character is required")
	}
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		ch := character
		st.StationAssignments[station] = &ch
		c.patch(models.StatePatch{StationAssignments: map[models.StationID]*models.CharacterID{station: &ch}})
		return nil
	})
}

// UnassignStation clears a station.
func (s *Store) UnassignStation(ctx context.Context, station models.StationID) error {
	if !station.Valid() {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown station %q", station))
	}
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		st.StationAssignments[station] = nil
		c.patch(models.StatePatch{StationAssignments: map[models.StationID]*models.CharacterID{station: nil}})
		return nil
	})
}

// ModifyArmor shifts ship armor by delta within [0, max tier].
func (s *Store) ModifyArmor(ctx context.Context, delta int) error {
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		s.shiftArmor(st, c, delta)
		c.patch(models.StatePatch{ShipArmor: intp(st.ShipArmor)})
		return nil
	})
}

// shiftArmor clamps armor changes. Callers hold s.mu.
func (s *Store) shiftArmor(st *models.CombatState, c *change, delta int) {
	switch {
	case delta < 0:
		c.emit(Event{Kind: EventShieldHit, Value: delta})
	case delta > 0:
		c.emit(Event{Kind: EventShieldUp, Value: delta})
	}
	st.ShipArmor = clamp(st.ShipArmor+delta, 0, ship.MaxArmorTier(s.ship))
}

// LoadTorpedoes adds n loaded torpedoes.
func (s *Store) LoadTorpedoes(ctx context.Context, n int) error {
	if n < 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("torpedo count must not be negative, got %d", n))
	}
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		st.TorpedoesLoaded += n
		c.patch(models.StatePatch{TorpedoesLoaded: intp(st.TorpedoesLoaded)})
		return nil
	})
}

// FireTorpedo removes one loaded torpedo, never going below zero.
func (s *Store) FireTorpedo(ctx context.Context) error {
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		if st.TorpedoesLoaded > 0 {
			st.TorpedoesLoaded--
		}
		c.patch(models.StatePatch{TorpedoesLoaded: intp(st.TorpedoesLoaded)})
		c.emit(Event{Kind: EventTorpedoFired})
		return nil
	})
}

// ChargeHyperdrive adds one charge, saturating at the maximum.
func (s *Store) ChargeHyperdrive(ctx context.Context) error {
	return s.setCharge(ctx, func(v int) int { return v + 1 })
}

// DecrementHyperdrive removes one charge, stopping at zero.
func (s *Store) DecrementHyperdrive(ctx context.Context) error {
	return s.setCharge(ctx, func(v int) int { return v - 1 })
}

// ResetHyperdrive drops the charge to zero.
func (s *Store) ResetHyperdrive(ctx context.Context) error {
	return s.setCharge(ctx, func(int) int { return 0 })
}

func (s *Store) setCharge(ctx context.Context, fn func(int) int) error {
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		st.HyperdriveCharge = clamp(fn(st.HyperdriveCharge), 0, models.MaxHyperdriveCharge)
		c.patch(models.StatePatch{HyperdriveCharge: intp(st.HyperdriveCharge)})
		return nil
	})
}

// AddCombatLog prepends an entry, evicting the oldest past the cap. An
// empty type means info.
func (s *Store) AddCombatLog(ctx context.Context, message string, t models.LogType, data map[string]any) (models.LogEntry, error) {
	if t == "" {
		t = models.LogInfo
	}
	if !t.Valid() {
		return models.LogEntry{}, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown log type %q", t))
	}
	e := s.entry(message, t, data)
	err := s.mutate(ctx, func(st *models.CombatState, c *change) error {
		prependLog(st, e)
		c.patch(models.StatePatch{CombatLog: st.CombatLog})
		return nil
	})
	return e, err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
