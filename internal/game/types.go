package game

import (
	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// DieRoll is one damage die. With advantage both faces are kept in Faces
// and Kept holds the higher one.
type DieRoll struct {
	Faces []int `json:"faces"`
	Kept  int   `json:"kept"`
}

// DamageResult captures a weapon damage roll
type DamageResult struct {
	Weapon    string    `json:"weapon"`
	Damage    string    `json:"damage"`
	Rolls     []DieRoll `json:"rolls"`
	Total     int       `json:"total"`
	Advantage bool      `json:"advantage"`
}

// ArmorResult captures damage after armor reduction. Die is 0 when no armor
// roll was made.
type ArmorResult struct {
	Raw       int `json:"raw"`
	Tier      int `json:"tier"`
	Die       int `json:"die"`
	Reduction int `json:"reduction"`
	Final     int `json:"final"`
}

// MoraleResult captures a 2d6 morale check. Outcome is empty when the unit
// holds.
type MoraleResult struct {
	Dice        [2]int             `json:"dice"`
	Total       int                `json:"total"`
	Threshold   int                `json:"threshold"`
	Demoralized bool               `json:"demoralized"`
	OutcomeRoll int                `json:"outcomeRoll,omitempty"`
	Outcome     models.EnemyStatus `json:"outcome,omitempty"`
}

// ShootingResult captures a full volley against an armored target and logs
type ShootingResult struct {
	Logs   []string     `json:"logs"`
	Damage DamageResult `json:"damage"`
	Armor  ArmorResult  `json:"armor"`
}

// ========================= Station actions =========================

type ActionType string

const (
	ActionAttack  ActionType = "attack"
	ActionDefense ActionType = "defense"
	ActionSupport ActionType = "support"
	ActionSpecial ActionType = "special"
)

type Ability string

const (
	AbilitySTR Ability = "STR"
	AbilityAGI Ability = "AGI"
	AbilityPRS Ability = "PRS"
	AbilityTGH Ability = "TGH"
	AbilityKNW Ability = "KNW"
)

// Action is one entry of the station action catalogue.
type Action struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            ActionType `json:"type"`
	Ability         Ability    `json:"ability"`
	DR              int        `json:"dr"`
	Damage          string     `json:"damage,omitempty"`
	RequiresTorpedo bool       `json:"requiresTorpedo,omitempty"`
	Description     string     `json:"description"`
	Warning         string     `json:"warning,omitempty"`
}

// ActionRequest carries the performer's inputs for a station action.
type ActionRequest struct {
	Character    string `json:"character"`
	Ability      int    `json:"ability"`
	DRAdjust     int    `json:"drAdjust"`
	Advantage    bool   `json:"advantage"`
	Disadvantage bool   `json:"disadvantage"`
	// Damage overrides the action's damage pattern, e.g. a turbo laser d8.
	Damage string `json:"damage,omitempty"`
	// TargetID names the enemy a successful attack lands on, if any.
	TargetID string `json:"targetId,omitempty"`
}

// ActionEffects lists the state changes a resolved action asks for.
type ActionEffects struct {
	ArmorDelta      int  `json:"armorDelta,omitempty"`
	TorpedoesLoaded int  `json:"torpedoesLoaded,omitempty"`
	TorpedoFired    bool `json:"torpedoFired,omitempty"`
	ChargeDelta     int  `json:"chargeDelta,omitempty"`
}

// ActionResult is the outcome of ResolveAction.
type ActionResult struct {
	Action   Action            `json:"action"`
	Test     engine.TestResult `json:"test"`
	Damage   *DamageResult     `json:"damage,omitempty"`
	Effects  ActionEffects     `json:"effects"`
	Message  string            `json:"message"`
	LogType  models.LogType    `json:"logType"`
	Logs     []string          `json:"logs"`
	DRAdjust int               `json:"drAdjust"`
}
