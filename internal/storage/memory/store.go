// Package memory provides an in-process room document store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// Store keeps room documents in a map and notifies subscribers
// synchronously after each update.
type Store struct {
	mu     sync.Mutex
	rooms  map[string]models.RoomDocument
	subs   map[string]map[int]func(models.RoomDocument)
	nextID int
	now    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		rooms: make(map[string]models.RoomDocument),
		subs:  make(map[string]map[int]func(models.RoomDocument)),
		now:   time.Now,
	}
}

func key(room string) string { return strings.ToUpper(strings.TrimSpace(room)) }

// Get returns the room document. Unknown rooms read as empty documents.
func (s *Store) Get(ctx context.Context, room string) (models.RoomDocument, error) {
	if err := ctx.Err(); err != nil {
		return models.RoomDocument{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.rooms[key(room)]
	if !ok {
		return models.RoomDocument{Code: key(room)}, nil
	}
	return cloneDoc(doc), nil
}

// Update replaces the patched top-level fields and notifies subscribers.
func (s *Store) Update(ctx context.Context, room string, patch models.DocumentPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key(room)
	s.mu.Lock()
	doc := s.rooms[k]
	doc.Code = k
	if patch.SpaceCombat != nil {
		st := patch.SpaceCombat.Clone()
		doc.SpaceCombat = &st
	}
	if patch.Ship != nil {
		sh := patch.Ship.Clone()
		doc.Ship = &sh
	}
	doc.UpdatedAt = s.now().UTC()
	s.rooms[k] = doc

	fns := make([]func(models.RoomDocument), 0, len(s.subs[k]))
	for _, fn := range s.subs[k] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(cloneDoc(doc))
	}
	return nil
}

// Subscribe registers fn for changes to room.
func (s *Store) Subscribe(room string, fn func(models.RoomDocument)) (func(), error) {
	k := key(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	if s.subs[k] == nil {
		s.subs[k] = make(map[int]func(models.RoomDocument))
	}
	s.subs[k][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[k], id)
	}, nil
}

func cloneDoc(doc models.RoomDocument) models.RoomDocument {
	out := doc
	if doc.SpaceCombat != nil {
		st := doc.SpaceCombat.Clone()
		out.SpaceCombat = &st
	}
	if doc.Ship != nil {
		sh := doc.Ship.Clone()
		out.Ship = &sh
	}
	return out
}
