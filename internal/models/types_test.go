package models

import (
	"encoding/json"
	"testing"
)

func TestNewCombatStateHasAllStations(t *testing.T) {
	st := NewCombatState()
	if st.IsActive {
		t.Fatal("new state must be inactive")
	}
	if st.ShipArmor != DefaultShipArmor {
		t.Fatalf("expected armor %d, got %d", DefaultShipArmor, st.ShipArmor)
	}
	for _, id := range Stations {
		v, ok := st.StationAssignments[id]
		if !ok {
			t.Fatalf("missing station %s", id)
		}
		if v != nil {
			t.Fatalf("station %s should be empty", id)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	st := NewCombatState()
	pilot := CharacterID("kira")
	st.StationAssignments[StationPilot] = &pilot
	st.Enemies = append(st.Enemies, Enemy{ID: "e1", HP: HP{Current: 6, Max: IntPtr(6)}, Traits: []string{"Elite"}})

	cp := st.Clone()
	*cp.Enemies[0].HP.Max = 1
	cp.Enemies[0].Traits[0] = "changed"
	*cp.StationAssignments[StationPilot] = "other"

	if *st.Enemies[0].HP.Max != 6 {
		t.Fatal("clone shares HP.Max")
	}
	if st.Enemies[0].Traits[0] != "Elite" {
		t.Fatal("clone shares traits")
	}
	if *st.StationAssignments[StationPilot] != "kira" {
		t.Fatal("clone shares station assignment")
	}
}

func TestEnemyPatchApply(t *testing.T) {
	e := Enemy{ID: "e1", Name: "Hunter Fighter", Status: StatusActive, HP: HP{Current: 6, Max: IntPtr(6)}}
	status := StatusFleeing
	notes := "limping"
	EnemyPatch{Status: &status, Notes: &notes}.Apply(&e)

	if e.Status != StatusFleeing || e.Notes != "limping" {
		t.Fatalf("patch not applied: %+v", e)
	}
	if e.Name != "Hunter Fighter" || e.HP.Current != 6 {
		t.Fatalf("patch touched unrelated fields: %+v", e)
	}
}

func TestInvulnerableHPEncodesNullMax(t *testing.T) {
	raw, err := json.Marshal(HP{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"current":0,"max":null}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
	if !(HP{}).Invulnerable() {
		t.Fatal("nil max must be invulnerable")
	}
}

func TestStationAndStatusValidation(t *testing.T) {
	if !StationGunner2.Valid() || StationID("galley").Valid() {
		t.Fatal("station validation wrong")
	}
	if !StatusSurrendered.Valid() || EnemyStatus("asleep").Valid() {
		t.Fatal("status validation wrong")
	}
	if !LogMoraleFail.Valid() || LogType("chatter").Valid() {
		t.Fatal("log type validation wrong")
	}
}
