// Package sqlite persists room documents in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/storage/sqlite/migrations"
)

const tracerName = "github.com/danroth-nyt/star-dashborg-sub001/internal/storage/sqlite"

// Store is a room document store. Each document is one row; the combat
// state and the ship are stored as JSON columns and replaced whole.
type Store struct {
	sqlDB  *sql.DB
	now    func() time.Time
	logger *zap.SugaredLogger
	tracer trace.Tracer

	// writeMu orders writes so watchers see documents in commit order.
	writeMu sync.Mutex

	mu     sync.Mutex
	subs   map[string]map[int]func(models.RoomDocument)
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.Sugar()
		}
	}
}

// WithClock replaces time.Now for updated_at.
func WithClock(fn func() time.Time) Option { return func(s *Store) { s.now = fn } }

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func roomKey(room string) string { return strings.ToUpper(strings.TrimSpace(room)) }

// Open opens the database at path and applies the embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{
		sqlDB:  sqlDB,
		now:    time.Now,
		logger: zap.NewNop().Sugar(),
		tracer: otel.Tracer(tracerName),
		subs:   make(map[string]map[int]func(models.RoomDocument)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) span(ctx context.Context, name, room string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("room", room)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Get returns the room document. A room that was never written reads as
// an empty document.
func (s *Store) Get(ctx context.Context, room string) (models.RoomDocument, error) {
	code := roomKey(room)
	ctx, span := s.span(ctx, "sqlite.GetRoom", code)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return models.RoomDocument{}, fail(span, err)
	}
	doc, err := s.load(ctx, code)
	if err != nil {
		return models.RoomDocument{}, fail(span, err)
	}
	return doc, nil
}

func (s *Store) load(ctx context.Context, code string) (models.RoomDocument, error) {
	var (
		combat, ship sql.NullString
		updatedAt    int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT space_combat, ship, updated_at FROM rooms WHERE code = ?`, code,
	).Scan(&combat, &ship, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoomDocument{Code: code}, nil
	}
	if err != nil {
		return models.RoomDocument{}, fmt.Errorf("get room %s: %w", code, err)
	}

	doc := models.RoomDocument{Code: code, UpdatedAt: fromMillis(updatedAt)}
	if combat.Valid {
		var st models.CombatState
		if err := json.Unmarshal([]byte(combat.String), &st); err != nil {
			return models.RoomDocument{}, fmt.Errorf("decode space_combat for %s: %w", code, err)
		}
		doc.SpaceCombat = &st
	}
	if ship.Valid {
		var sh models.Ship
		if err := json.Unmarshal([]byte(ship.String), &sh); err != nil {
			return models.RoomDocument{}, fmt.Errorf("decode ship for %s: %w", code, err)
		}
		doc.Ship = &sh
	}
	return doc, nil
}

func encode(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Update replaces the fields present in patch and notifies watchers with
// the resulting document.
func (s *Store) Update(ctx context.Context, room string, patch models.DocumentPatch) error {
	code := roomKey(room)
	ctx, span := s.span(ctx, "sqlite.UpdateRoom", code)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return fail(span, err)
	}
	if code == "" {
		return fail(span, fmt.Errorf("room code is required"))
	}
	combat, err := encode(patch.SpaceCombat, patch.SpaceCombat != nil)
	if err != nil {
		return fail(span, fmt.Errorf("encode space_combat: %w", err))
	}
	ship, err := encode(patch.Ship, patch.Ship != nil)
	if err != nil {
		return fail(span, fmt.Errorf("encode ship: %w", err))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO rooms (code, space_combat, ship, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		   space_combat = COALESCE(excluded.space_combat, rooms.space_combat),
		   ship = COALESCE(excluded.ship, rooms.ship),
		   updated_at = excluded.updated_at`,
		code, combat, ship, toMillis(s.now()),
	)
	if err != nil {
		return fail(span, fmt.Errorf("update room %s: %w", code, err))
	}

	doc, err := s.load(ctx, code)
	if err != nil {
		s.logger.Warnf("room %s: reload after write: %v", code, err)
		return nil
	}
	s.notify(code, doc)
	return nil
}

func (s *Store) notify(code string, doc models.RoomDocument) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs[code]))
	for id := range s.subs[code] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(models.RoomDocument), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[code][id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(doc)
	}
}

// Subscribe registers fn for every committed change to room.
func (s *Store) Subscribe(room string, fn func(models.RoomDocument)) (func(), error) {
	code := roomKey(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	if s.subs[code] == nil {
		s.subs[code] = make(map[int]func(models.RoomDocument))
	}
	s.subs[code][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[code], id)
		if len(s.subs[code]) == 0 {
			delete(s.subs, code)
		}
	}, nil
}

// Rooms lists the codes of every stored room.
func (s *Store) Rooms(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT code FROM rooms ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
