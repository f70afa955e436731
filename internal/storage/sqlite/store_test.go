package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	now := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	store, err := Open(filepath.Join(t.TempDir(), "rooms.db"), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestGetMissingRoom(t *testing.T) {
	store := openTempStore(t)
	doc, err := store.Get(context.Background(), "abcd")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Code != "ABCD" || doc.SpaceCombat != nil || doc.Ship != nil {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	st := models.NewCombatState()
	st.IsActive = true
	st.Enemies = []models.Enemy{{ID: "e1", Name: "Predator Leader", HP: models.HP{Current: 9, Max: models.IntPtr(12)}, Status: models.StatusActive}}
	if err := store.Update(ctx, "ABCD", models.DocumentPatch{SpaceCombat: &st}); err != nil {
		t.Fatalf("update combat: %v", err)
	}
	sh := models.Ship{PurchasedUpgrades: []models.UpgradeID{models.UpgradeOverchargeShields}}
	if err := store.Update(ctx, "abcd", models.DocumentPatch{Ship: &sh}); err != nil {
		t.Fatalf("update ship: %v", err)
	}

	doc, err := store.Get(ctx, "ABCD")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.SpaceCombat == nil || !doc.SpaceCombat.IsActive {
		t.Fatalf("expected combat kept after ship write, got %+v", doc.SpaceCombat)
	}
	if got := doc.SpaceCombat.Enemies[0]; got.HP.Current != 9 || got.HP.Max == nil || *got.HP.Max != 12 {
		t.Fatalf("unexpected enemy %+v", got)
	}
	if doc.Ship == nil || len(doc.Ship.PurchasedUpgrades) != 1 {
		t.Fatalf("expected ship upgrades, got %+v", doc.Ship)
	}
	if doc.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at set")
	}

	rooms, err := store.Rooms(ctx)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0] != "ABCD" {
		t.Fatalf("expected [ABCD], got %v", rooms)
	}
}

func TestSubscribeSeesCommittedDocument(t *testing.T) {
	store := openTempStore(t)
	var got []models.RoomDocument
	unsub, err := store.Subscribe("ROOM", func(doc models.RoomDocument) { got = append(got, doc) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	st := models.NewCombatState()
	st.HyperdriveCharge = 2
	if err := store.Update(context.Background(), "room", models.DocumentPatch{SpaceCombat: &st}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got) != 1 || got[0].SpaceCombat == nil || got[0].SpaceCombat.HyperdriveCharge != 2 {
		t.Fatalf("expected one notification with charge 2, got %+v", got)
	}
	unsub()
	if err := store.Update(context.Background(), "room", models.DocumentPatch{SpaceCombat: &st}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected no notification after unsubscribe, got %d", len(got))
	}
}

func TestUpdateCanceledContext(t *testing.T) {
	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := models.NewCombatState()
	if err := store.Update(ctx, "R", models.DocumentPatch{SpaceCombat: &st}); err == nil {
		t.Fatal("expected canceled context error")
	}
}

func TestApplyMigrationsOnce(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{
		"001_items.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;")},
	}
	for i := 0; i < 2; i++ {
		if err := applyMigrations(context.Background(), db, fsys); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + migrationTable).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 migration row, got %d", n)
	}
}

func TestUpSection(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"CREATE TABLE a(x);", "CREATE TABLE a(x);"},
		{"-- +migrate Up\nA;\n-- +migrate Down\nB;", "\nA;\n"},
		{"-- +migrate Up\nA;", "\nA;"},
	}
	for _, tt := range tests {
		if got := upSection(tt.in); got != tt.want {
			t.Fatalf("upSection(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
