package stats

import (
	"testing"
	"time"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/combat"
)

func TestNotifyTallies(t *testing.T) {
	s := New()
	events := []combat.Event{
		{Kind: combat.EventEnemyHit, Room: "A", EnemyID: "e1", Value: 4},
		{Kind: combat.EventEnemyHit, Room: "A", EnemyID: "e2", Value: 7},
		{Kind: combat.EventEnemyHit, Room: "A", EnemyID: "e3", Value: 7},
		{Kind: combat.EventEnemyDestroyed, Room: "A", EnemyID: "e2"},
		{Kind: combat.EventEnemyFlee, Room: "A", EnemyID: "e1"},
		{Kind: combat.EventTorpedoFired, Room: "A"},
		{Kind: combat.EventSyncIssue, Room: "A"},
		{Kind: combat.EventEnemyDestroyed, Room: "B", EnemyID: "x"},
	}
	for _, e := range events {
		s.Notify(e)
	}

	a := s.Room("A")
	if a.Hits != 3 || a.DamageDealt != 18 || a.EnemiesDestroyed != 1 || a.EnemiesFled != 1 {
		t.Fatalf("unexpected tally %+v", a)
	}
	if a.TorpedoesFired != 1 || a.SyncIssues != 1 {
		t.Fatalf("unexpected tally %+v", a)
	}
	if a.BiggestHitToday == nil || a.BiggestHitToday.Damage != 7 || a.BiggestHitToday.EnemyID != "e2" {
		t.Fatalf("expected earliest 7-damage hit on e2, got %+v", a.BiggestHitToday)
	}
	if b := s.Room("B"); b.EnemiesDestroyed != 1 || b.BiggestHitToday != nil {
		t.Fatalf("unexpected tally for B %+v", b)
	}
	if empty := s.Room("C"); empty.Room != "C" || empty.Hits != 0 {
		t.Fatalf("expected empty tally, got %+v", empty)
	}
}

func TestDailyMaxRollsOver(t *testing.T) {
	s := New()
	day := time.Date(2026, time.May, 1, 23, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }
	s.Notify(combat.Event{Kind: combat.EventEnemyHit, Room: "A", Value: 9})

	day = day.Add(2 * time.Hour)
	if _, ok := s.BiggestHitToday("A"); ok {
		t.Fatal("expected no hit recorded for the new day")
	}
	s.Notify(combat.Event{Kind: combat.EventEnemyHit, Room: "A", Value: 2})
	if h, ok := s.BiggestHitToday("A"); !ok || h.Damage != 2 {
		t.Fatalf("expected 2 today, got %+v", h)
	}

	s.ResetDaily()
	if _, ok := s.BiggestHitToday("A"); ok {
		t.Fatal("expected reset to clear daily records")
	}
}
