package game

import (
	"fmt"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

const (
	ActionSteady          = "steady"
	ActionFixedBeamCannon = "fixedBeamCannon"
	ActionEvade           = "evade"
	ActionTargetLock      = "targetLock"
	ActionFireTorpedo     = "fireTorpedo"
	ActionJamming         = "jamming"
	ActionRepairShield    = "repairShield"
	ActionLoadTorpedo     = "loadTorpedo"
	ActionHyperdriveJump  = "hyperdriveJump"
	ActionDeflectors      = "deflectors"
	ActionFireLaserTurret = "fireLaserTurret"
)

// Actions is the station action catalogue keyed by action id.
var Actions = map[string]Action{
	ActionSteady: {
		ID: ActionSteady, Name: "Steady", Type: ActionSupport, Ability: AbilityKNW, DR: 12,
		Description: "Test KNW to grant advantage to the next attack test against an enemy",
	},
	ActionFixedBeamCannon: {
		ID: ActionFixedBeamCannon, Name: "Fixed Beam Cannon", Type: ActionAttack, Ability: AbilityPRS, DR: 12,
		Damage: "1d4", Description: "Test PRS to fire the fixed beam cannon",
	},
	ActionEvade: {
		ID: ActionEvade, Name: "Evade", Type: ActionDefense, Ability: AbilityAGI, DR: 12,
		Description: "Test AGI to negate incoming enemy attack",
	},
	ActionTargetLock: {
		ID: ActionTargetLock, Name: "Target Lock", Type: ActionSupport, Ability: AbilityAGI, DR: 12,
		Description: "Test AGI. Reduce a single enemy's armor by 1 tier until end of round",
	},
	ActionFireTorpedo: {
		ID: ActionFireTorpedo, Name: "Fire Particle Torpedo", Type: ActionAttack, Ability: AbilityKNW, DR: 12,
		Damage: "1d8", RequiresTorpedo: true, Description: "If a particle torpedo is loaded, test KNW to fire",
	},
	ActionJamming: {
		ID: ActionJamming, Name: "Jamming", Type: ActionDefense, Ability: AbilityPRS, DR: 12,
		Description: "Test PRS to negate incoming enemy attack",
	},
	ActionRepairShield: {
		ID: ActionRepairShield, Name: "Repair Shield", Type: ActionSupport, Ability: AbilityKNW, DR: 12,
		Description: "Test KNW to increase Ship Armor by 1 tier",
	},
	ActionLoadTorpedo: {
		ID: ActionLoadTorpedo, Name: "Load Particle Torpedo", Type: ActionSupport, Ability: AbilitySTR, DR: 12,
		Description: "Test STR to load D2 torpedoes to fire",
	},
	ActionHyperdriveJump: {
		ID: ActionHyperdriveJump, Name: "Hyperdrive Jump", Type: ActionSpecial, Ability: AbilityKNW, DR: 14,
		Description: "Charting, charging, and engaging takes 3 rounds. Dangerous in combat",
		Warning:     "Jumping in combat with 4+ enemies destroys the ship!",
	},
	ActionDeflectors: {
		ID: ActionDeflectors, Name: "Deflectors", Type: ActionDefense, Ability: AbilityPRS, DR: 12,
		Description: "Test PRS to negate incoming enemy attack",
	},
	ActionFireLaserTurret: {
		ID: ActionFireLaserTurret, Name: "Fire Laser Turret", Type: ActionAttack, Ability: AbilityAGI, DR: 12,
		Damage: "1d6", Description: "Test AGI to fire the laser turret",
	},
}

var stationActions = map[models.StationID][]string{
	models.StationPilot:     {ActionSteady, ActionFixedBeamCannon, ActionEvade},
	models.StationCopilot:   {ActionTargetLock, ActionFireTorpedo, ActionJamming},
	models.StationEngineer1: {ActionRepairShield, ActionLoadTorpedo, ActionHyperdriveJump, ActionDeflectors},
	models.StationEngineer2: {ActionRepairShield, ActionLoadTorpedo, ActionHyperdriveJump, ActionDeflectors},
	models.StationGunner1:   {ActionFireLaserTurret, ActionDeflectors},
	models.StationGunner2:   {ActionFireLaserTurret, ActionDeflectors},
}

// StationActions returns the actions a station offers, in display order.
func StationActions(station models.StationID) []Action {
	ids := stationActions[station]
	out := make([]Action, 0, len(ids))
	for _, id := range ids {
		out = append(out, Actions[id])
	}
	return out
}

// StationOffers reports whether station lists actionID.
func StationOffers(station models.StationID, actionID string) bool {
	for _, id := range stationActions[station] {
		if id == actionID {
			return true
		}
	}
	return false
}

// ShipStatus is the slice of combat state an action reads.
type ShipStatus struct {
	TorpedoesLoaded  int
	HyperdriveCharge int
}

// ResolveAction rolls a station action test and derives its effects. An
// action that needs a loaded torpedo fails without rolling when none is
// loaded.
func ResolveAction(r *engine.Roller, a Action, req ActionRequest, ship ShipStatus) (ActionResult, error) {
	who := req.Character
	if who == "" {
		who = "Crew"
	}
	adjust := ClampAdjustment(req.DRAdjust)
	res := ActionResult{Action: a, LogType: logTypeFor(a.Type), DRAdjust: adjust}

	if a.RequiresTorpedo && ship.TorpedoesLoaded == 0 {
		res.Message = fmt.Sprintf("%s failed: No torpedoes loaded!", a.Name)
		res.LogType = models.LogDamage
		res.Logs = []string{res.Message}
		return res, nil
	}

	dr := AdjustDifficulty(a.DR, adjust)
	test, err := r.RollTest(engine.TestRequest{
		Ability:      req.Ability,
		Difficulty:   dr,
		Advantage:    req.Advantage,
		Disadvantage: req.Disadvantage,
	})
	if err != nil {
		return ActionResult{}, err
	}
	res.Test = test
	res.Logs = append(res.Logs, fmt.Sprintf("%s test (%s): d20=%d + %d = %d vs DR%d", a.Name, test.Mode, test.Roll, req.Ability, test.Total, dr))

	msg := fmt.Sprintf("%s - %s: ", who, a.Name)
	switch {
	case test.Crit:
		msg += fmt.Sprintf("CRITICAL! (20 + %d = %d)", req.Ability, test.Total)
		res.LogType = models.LogAttack
	case test.Blunder:
		msg += fmt.Sprintf("BLUNDER! (1 + %d = %d)", req.Ability, test.Total)
		res.LogType = models.LogDamage
		if a.Type == ActionDefense {
			res.Effects.ArmorDelta = -1
			msg += " - Shield degraded!"
			res.Logs = append(res.Logs, "Blunder on defense: ship armor -1")
		}
	default:
		outcome := "FAIL"
		if test.Success {
			outcome = "SUCCESS"
		}
		msg += fmt.Sprintf("%s (%d + %d = %d vs DR%d)", outcome, test.Roll, req.Ability, test.Total, dr)
	}

	if test.Success {
		pattern := a.Damage
		if req.Damage != "" && a.Type == ActionAttack {
			pattern = req.Damage
		}
		if pattern != "" {
			dmg, err := RollWeaponDamage(r, models.Weapon{Name: a.Name, Damage: pattern}, false)
			if err != nil {
				return ActionResult{}, err
			}
			res.Damage = &dmg
			msg += fmt.Sprintf(" - Dealt %d damage!", dmg.Total)
			res.Logs = append(res.Logs, fmt.Sprintf("Damage %s -> %d", pattern, dmg.Total))
			if a.RequiresTorpedo {
				res.Effects.TorpedoFired = true
			}
		}
		switch a.ID {
		case ActionRepairShield:
			res.Effects.ArmorDelta = 1
			msg += " - Shield repaired!"
		case ActionLoadTorpedo:
			n, err := r.RollDie(2)
			if err != nil {
				return ActionResult{}, err
			}
			res.Effects.TorpedoesLoaded = n
			if n > 1 {
				msg += fmt.Sprintf(" - Loaded %d torpedoes!", n)
			} else {
				msg += fmt.Sprintf(" - Loaded %d torpedo!", n)
			}
		case ActionHyperdriveJump:
			res.Effects.ChargeDelta = 1
			charge := ship.HyperdriveCharge + 1
			if charge > models.MaxHyperdriveCharge {
				charge = models.MaxHyperdriveCharge
			}
			msg += fmt.Sprintf(" - Hyperdrive charged (%d/%d)!", charge, models.MaxHyperdriveCharge)
		}
	}

	res.Message = msg
	res.Logs = append(res.Logs, msg)
	return res, nil
}

func logTypeFor(t ActionType) models.LogType {
	switch t {
	case ActionAttack:
		return models.LogAttack
	case ActionDefense:
		return models.LogDefense
	case ActionSupport:
		return models.LogSupport
	default:
		return models.LogInfo
	}
}
