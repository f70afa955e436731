package models

import (
	"encoding/json"
	"time"
)

// ========================= Stations =========================

// StationID names one of the six fixed crew stations.
type StationID string

const (
	StationPilot     StationID = "pilot"
	StationCopilot   StationID = "copilot"
	StationEngineer1 StationID = "engineer1"
	StationEngineer2 StationID = "engineer2"
	StationGunner1   StationID = "gunner1"
	StationGunner2   StationID = "gunner2"
)

// Stations lists every station in display order.
var Stations = []StationID{
	StationPilot, StationCopilot, StationEngineer1, StationEngineer2, StationGunner1, StationGunner2,
}

// Valid reports whether s is one of the fixed stations.
func (s StationID) Valid() bool {
	for _, st := range Stations {
		if st == s {
			return true
		}
	}
	return false
}

// CharacterID identifies a party member assigned to a station.
type CharacterID string

// ========================= Enemies =========================

// EnemyStatus is where an enemy is in its lifecycle.
type EnemyStatus string

const (
	StatusActive      EnemyStatus = "active"
	StatusFleeing     EnemyStatus = "fleeing"
	StatusSurrendered EnemyStatus = "surrendered"
	StatusDestroyed   EnemyStatus = "destroyed"
)

// Valid reports whether s is a known status.
func (s EnemyStatus) Valid() bool {
	switch s {
	case StatusActive, StatusFleeing, StatusSurrendered, StatusDestroyed:
		return true
	}
	return false
}

// HP tracks hit points. A nil Max marks an invulnerable unit.
type HP struct {
	Current int  `json:"current"`
	Max     *int `json:"max"`
}

// Invulnerable reports whether the unit cannot take HP damage.
func (h HP) Invulnerable() bool { return h.Max == nil }

// Weapon is an attack profile; Damage is the NdM pattern shown to players.
type Weapon struct {
	Name      string `json:"name"`
	Damage    string `json:"damage"`
	DiceCount int    `json:"diceCount"`
	DiceSides int    `json:"diceSides"`
	Advantage bool   `json:"advantage,omitempty"`
}

// Enemy is one spawned hostile unit.
type Enemy struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Build     string      `json:"build,omitempty"`
	HP        HP          `json:"hp"`
	Morale    *int        `json:"morale"`
	Armor     *int        `json:"armor"`
	Weapon    Weapon      `json:"weapon"`
	Traits    []string    `json:"traits"`
	Status    EnemyStatus `json:"status"`
	Notes     string      `json:"notes,omitempty"`
	Fodder    bool        `json:"fodder"`
	DR        int         `json:"dr"`
	CreatedAt int64       `json:"createdAt"`
}

// Clone returns a deep copy of e.
func (e Enemy) Clone() Enemy {
	out := e
	out.HP.Max = cloneInt(e.HP.Max)
	out.Morale = cloneInt(e.Morale)
	out.Armor = cloneInt(e.Armor)
	out.Traits = append([]string(nil), e.Traits...)
	return out
}

// EnemyPatch is a shallow partial update for an enemy. Nil fields are left
// untouched.
type EnemyPatch struct {
	Name   *string      `json:"name,omitempty"`
	HP     *HP          `json:"hp,omitempty"`
	Morale *int         `json:"morale,omitempty"`
	Armor  *int         `json:"armor,omitempty"`
	Weapon *Weapon      `json:"weapon,omitempty"`
	Traits []string     `json:"traits,omitempty"`
	Status *EnemyStatus `json:"status,omitempty"`
	Notes  *string      `json:"notes,omitempty"`
	DR     *int         `json:"dr,omitempty"`
}

// Apply merges the patch into e.
func (p EnemyPatch) Apply(e *Enemy) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.HP != nil {
		e.HP = HP{Current: p.HP.Current, Max: cloneInt(p.HP.Max)}
	}
	if p.Morale != nil {
		e.Morale = cloneInt(p.Morale)
	}
	if p.Armor != nil {
		e.Armor = cloneInt(p.Armor)
	}
	if p.Weapon != nil {
		e.Weapon = *p.Weapon
	}
	if p.Traits != nil {
		e.Traits = append([]string(nil), p.Traits...)
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.DR != nil {
		e.DR = *p.DR
	}
}

// ========================= Combat log =========================

// LogType classifies a combat log entry.
type LogType string

const (
	LogAttack     LogType = "attack"
	LogDefense    LogType = "defense"
	LogSupport    LogType = "support"
	LogDamage     LogType = "damage"
	LogInfo       LogType = "info"
	LogCombat     LogType = "combat"
	LogEnemy      LogType = "enemy"
	LogDestroy    LogType = "destroy"
	LogMorale     LogType = "morale"
	LogMoraleFail LogType = "morale-fail"
)

// Valid reports whether t is one of the fixed log tags.
func (t LogType) Valid() bool {
	switch t {
	case LogAttack, LogDefense, LogSupport, LogDamage, LogInfo, LogCombat,
		LogEnemy, LogDestroy, LogMorale, LogMoraleFail:
		return true
	}
	return false
}

// LogEntry is an immutable combat log record.
type LogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Type      LogType        `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// MaxCombatLog caps the combat log; older entries are evicted.
const MaxCombatLog = 50

// ========================= Combat state =========================

const (
	DefaultShipArmor    = 2
	MaxHyperdriveCharge = 3
)

// CombatState is the room-wide space combat state, stored under the room
// document's spaceCombat field.
type CombatState struct {
	IsActive           bool                       `json:"isActive"`
	ShipArmor          int                        `json:"shipArmor"`
	TorpedoesLoaded    int                        `json:"torpedoesLoaded"`
	HyperdriveCharge   int                        `json:"hyperdriveCharge"`
	StationAssignments map[StationID]*CharacterID `json:"stationAssignments"`
	CombatLog          []LogEntry                 `json:"combatLog"`
	Enemies            []Enemy                    `json:"enemies"`
}

// NewCombatState returns the initial, inactive state.
func NewCombatState() CombatState {
	st := CombatState{
		ShipArmor:          DefaultShipArmor,
		StationAssignments: make(map[StationID]*CharacterID, len(Stations)),
		CombatLog:          []LogEntry{},
		Enemies:            []Enemy{},
	}
	for _, id := range Stations {
		st.StationAssignments[id] = nil
	}
	return st
}

// Clone returns a deep copy so snapshots can leave the owning store.
func (s CombatState) Clone() CombatState {
	out := s
	out.StationAssignments = make(map[StationID]*CharacterID, len(s.StationAssignments))
	for k, v := range s.StationAssignments {
		if v != nil {
			c := *v
			out.StationAssignments[k] = &c
		} else {
			out.StationAssignments[k] = nil
		}
	}
	out.CombatLog = append([]LogEntry{}, s.CombatLog...)
	out.Enemies = make([]Enemy, len(s.Enemies))
	for i, e := range s.Enemies {
		out.Enemies[i] = e.Clone()
	}
	return out
}

// FindEnemy returns the index of the enemy with id, or -1.
func (s CombatState) FindEnemy(id string) int {
	for i := range s.Enemies {
		if s.Enemies[i].ID == id {
			return i
		}
	}
	return -1
}

// StatePatch is a partial combat state carried by COMBAT_STATE_UPDATE
// broadcasts. Nil fields are left untouched. The slices encode as null when
// nil and as [] when cleared, so an empty list survives the wire.
type StatePatch struct {
	IsActive           *bool                      `json:"isActive,omitempty"`
	ShipArmor          *int                       `json:"shipArmor,omitempty"`
	TorpedoesLoaded    *int                       `json:"torpedoesLoaded,omitempty"`
	HyperdriveCharge   *int                       `json:"hyperdriveCharge,omitempty"`
	StationAssignments map[StationID]*CharacterID `json:"stationAssignments,omitempty"`
	CombatLog          []LogEntry                 `json:"combatLog"`
	Enemies            []Enemy                    `json:"enemies"`
}

// ========================= Ship =========================

// UpgradeID names a ship upgrade.
type UpgradeID string

const (
	UpgradeBoosterRockets    UpgradeID = "boosterRockets"
	UpgradeTorpedoWinch      UpgradeID = "torpedoWinch"
	UpgradeOverchargeShields UpgradeID = "overchargeShields"
	UpgradeTurboLasers       UpgradeID = "turboLasers"
)

// TorpedoType names a torpedo variant.
type TorpedoType string

const (
	TorpedoStandard     TorpedoType = "standard"
	TorpedoCluster      TorpedoType = "cluster"
	TorpedoHunterKiller TorpedoType = "hunterKiller"
	TorpedoChaff        TorpedoType = "chaff"
	TorpedoIon          TorpedoType = "ion"
)

// Ship is the party's vessel. Combat only reads it, except when a torpedo
// is consumed.
type Ship struct {
	HeroicUpgrades    []UpgradeID         `json:"heroicUpgrades"`
	PurchasedUpgrades []UpgradeID         `json:"purchasedUpgrades"`
	TorpedoInventory  map[TorpedoType]int `json:"torpedoInventory"`
	TurboLaserStation StationID           `json:"turboLaserStation,omitempty"`
	GalaxiesSaved     int                 `json:"galaxiesSaved"`
}

// Clone returns a deep copy of s.
func (s Ship) Clone() Ship {
	out := s
	out.HeroicUpgrades = append([]UpgradeID(nil), s.HeroicUpgrades...)
	out.PurchasedUpgrades = append([]UpgradeID(nil), s.PurchasedUpgrades...)
	if s.TorpedoInventory != nil {
		out.TorpedoInventory = make(map[TorpedoType]int, len(s.TorpedoInventory))
		for k, v := range s.TorpedoInventory {
			out.TorpedoInventory[k] = v
		}
	}
	return out
}

// ========================= Room document =========================

// RoomDocument is the persisted source of truth for a room. The combat
// engine only reads and writes SpaceCombat (and Ship for torpedo use).
type RoomDocument struct {
	Code        string       `json:"code"`
	SpaceCombat *CombatState `json:"spaceCombat,omitempty"`
	Ship        *Ship        `json:"ship,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// DocumentPatch replaces the non-nil top-level fields of a room document.
type DocumentPatch struct {
	SpaceCombat *CombatState `json:"spaceCombat,omitempty"`
	Ship        *Ship        `json:"ship,omitempty"`
}

// ========================= Realtime =========================

// MessageType names the kind of a broadcast message.
type MessageType string

const (
	MessageEnemyHPAdjust     MessageType = "ENEMY_HP_ADJUST"
	MessageCombatStateUpdate MessageType = "COMBAT_STATE_UPDATE"
)

// Message is the broadcast envelope. Timestamp is Unix milliseconds.
type Message struct {
	SenderID  string          `json:"senderId"`
	Timestamp int64           `json:"timestamp"`
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
}

// EnemyHPAdjust is the payload of ENEMY_HP_ADJUST.
type EnemyHPAdjust struct {
	EnemyID   string      `json:"enemyId"`
	NewHP     int         `json:"newHp"`
	NewStatus EnemyStatus `json:"newStatus"`
}

// WsMsg is the websocket frame exchanged between the server hub and clients.
type WsMsg struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Event   string          `json:"event,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Websocket frame types.
const (
	FrameHello     = "hello"
	FrameDocument  = "document"
	FrameBroadcast = "broadcast"
	FramePublish   = "publish"
	FrameSubscribe = "subscribe"
	FrameError     = "error"
)

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
