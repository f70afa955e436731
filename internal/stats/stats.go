// Package stats keeps per-room combat tallies in memory.
package stats

import (
	"sync"
	"time"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/combat"
)

// RoomStats is the running tally of one room.
type RoomStats struct {
	Room             string `json:"room"`
	EnemiesDestroyed int    `json:"enemiesDestroyed"`
	EnemiesFled      int    `json:"enemiesFled"`
	EnemiesSurrender int    `json:"enemiesSurrendered"`
	Hits             int    `json:"hits"`
	DamageDealt      int    `json:"damageDealt"`
	TorpedoesFired   int    `json:"torpedoesFired"`
	Crits            int    `json:"crits"`
	Blunders         int    `json:"blunders"`
	ShieldHits       int    `json:"shieldHits"`
	SyncIssues       int    `json:"syncIssues"`
	BiggestHitToday  *Hit   `json:"biggestHitToday,omitempty"`
}

// Hit is one landed hit on an enemy.
type Hit struct {
	Damage  int    `json:"damage"`
	EnemyID string `json:"enemyId"`
	At      int64  `json:"at"`
}

// Store tallies combat events. It implements combat.Notifier.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*RoomStats
	// daily biggest hit per room, keyed by UTC date (YYYY-MM-DD)
	daily map[string]map[string]Hit
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		rooms: make(map[string]*RoomStats),
		daily: make(map[string]map[string]Hit),
		now:   time.Now,
	}
}

// Notify records one combat event.
func (s *Store) Notify(e combat.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.rooms[e.Room]
	if rs == nil {
		rs = &RoomStats{Room: e.Room}
		s.rooms[e.Room] = rs
	}
	switch e.Kind {
	case combat.EventEnemyDestroyed:
		rs.EnemiesDestroyed++
	case combat.EventEnemyFlee:
		rs.EnemiesFled++
	case combat.EventEnemySurrender:
		rs.EnemiesSurrender++
	case combat.EventEnemyHit:
		rs.Hits++
		rs.DamageDealt += e.Value
		s.saveDailyMax(e.Room, Hit{Damage: e.Value, EnemyID: e.EnemyID, At: s.now().UnixMilli()})
	case combat.EventTorpedoFired:
		rs.TorpedoesFired++
	case combat.EventCritical:
		rs.Crits++
	case combat.EventBlunder:
		rs.Blunders++
	case combat.EventShieldHit:
		rs.ShieldHits++
	case combat.EventSyncIssue:
		rs.SyncIssues++
	}
}

// Room returns a copy of the tally of room, with today's biggest hit.
func (s *Store) Room(room string) RoomStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := RoomStats{Room: room}
	if rs := s.rooms[room]; rs != nil {
		out = *rs
	}
	if h, ok := s.daily[s.dateKey()][room]; ok {
		out.BiggestHitToday = &h
	}
	return out
}
