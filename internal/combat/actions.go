package combat

import (
	"context"
	"fmt"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/game"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/ship"
)

// ActionOutcome is the result of PerformStationAction. Hit is set when a
// successful attack landed on a target.
type ActionOutcome struct {
	Result game.ActionResult `json:"result"`
	Entry  models.LogEntry   `json:"entry"`
	Hit    *DamageReport     `json:"hit,omitempty"`
}

// PerformStationAction rolls a station action for the character at the
// station and applies its effects to the ship.
func (s *Store) PerformStationAction(ctx context.Context, station models.StationID, actionID string, req game.ActionRequest) (ActionOutcome, error) {
	if !station.Valid() {
		return ActionOutcome{}, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown station %q", station))
	}
	action, ok := game.Actions[actionID]
	if !ok {
		return ActionOutcome{}, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown action %q", actionID))
	}

	var out ActionOutcome
	err := s.mutate(ctx, func(st *models.CombatState, c *change) error {
		offered := game.StationOffers(station, actionID) ||
			(actionID == game.ActionLoadTorpedo && ship.AnyStationCanLoadTorpedoes(s.ship))
		if !offered {
			return apperrors.New(apperrors.CodeInvalidOperation,
				fmt.Sprintf("%s cannot perform %s", station, action.Name))
		}
		target := -1
		if req.TargetID != "" {
			if target = st.FindEnemy(req.TargetID); target < 0 {
				return s.enemyNotFound(req.TargetID)
			}
		}
		if req.Character == "" {
			if who := st.StationAssignments[station]; who != nil {
				req.Character = string(*who)
			}
		}
		if actionID == game.ActionFireLaserTurret && req.Damage == "" {
			req.Damage = ship.GunnerDamageDie(s.ship, station)
		}

		res, err := game.ResolveAction(s.roller, action, req, game.ShipStatus{
			TorpedoesLoaded:  st.TorpedoesLoaded,
			HyperdriveCharge: st.HyperdriveCharge,
		})
		if err != nil {
			return err
		}

		fx := res.Effects
		if fx.ArmorDelta != 0 {
			s.shiftArmor(st, c, fx.ArmorDelta)
		}
		if fx.TorpedoFired && st.TorpedoesLoaded > 0 {
			st.TorpedoesLoaded--
			c.emit(Event{Kind: EventTorpedoFired})
		}
		st.TorpedoesLoaded += fx.TorpedoesLoaded
		st.HyperdriveCharge = clamp(st.HyperdriveCharge+fx.ChargeDelta, 0, models.MaxHyperdriveCharge)
		switch {
		case res.Test.Crit:
			c.emit(Event{Kind: EventCritical})
		case res.Test.Blunder:
			c.emit(Event{Kind: EventBlunder})
		}

		data := map[string]any{
			"station":  string(station),
			"action":   actionID,
			"rollMode": string(res.Test.Mode),
			"drAdjust": res.DRAdjust,
			"roll":     res.Test.Roll,
			"total":    res.Test.Total,
		}
		if res.Test.Discarded != nil {
			data["discarded"] = *res.Test.Discarded
		}
		if res.Damage != nil {
			data["damage"] = res.Damage.Total
		}
		out.Entry = s.entry(res.Message, res.LogType, data)
		prependLog(st, out.Entry)
		out.Result = res

		if target >= 0 && res.Damage != nil {
			var rep DamageReport
			if err := s.landHit(st, c, target, res.Damage.Total, nil, &rep); err != nil {
				return err
			}
			out.Hit = &rep
		}

		c.patch(models.StatePatch{
			ShipArmor:        intp(st.ShipArmor),
			TorpedoesLoaded:  intp(st.TorpedoesLoaded),
			HyperdriveCharge: intp(st.HyperdriveCharge),
			CombatLog:        st.CombatLog,
			Enemies:          cloneEnemies(st.Enemies),
		})
		s.logger.Infof("room %s: %s", s.room, res.Message)
		return nil
	})
	return out, err
}

// TorpedoReport is the result of FireTorpedoType.
type TorpedoReport struct {
	Torpedo ship.Torpedo       `json:"torpedo"`
	Damage  *game.DamageResult `json:"damage,omitempty"`
	Hit     *DamageReport      `json:"hit,omitempty"`
	Entry   models.LogEntry    `json:"entry"`
}

// FireTorpedoType fires a loaded torpedo of the given type. Special types
// are drawn from the ship's inventory; standard torpedoes only need to be
// loaded. Chaff needs no target.
func (s *Store) FireTorpedoType(ctx context.Context, t models.TorpedoType, targetID string) (TorpedoReport, error) {
	torp, ok := ship.Torpedoes[t]
	if !ok {
		return TorpedoReport{}, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown torpedo type %q", t))
	}
	var rep TorpedoReport
	rep.Torpedo = torp
	err := s.mutate(ctx, func(st *models.CombatState, c *change) error {
		if st.TorpedoesLoaded == 0 {
			return apperrors.New(apperrors.CodeInvalidOperation, "no torpedoes loaded")
		}
		target := -1
		if !torp.Defensive {
			if target = st.FindEnemy(targetID); target < 0 {
				return s.enemyNotFound(targetID)
			}
		}
		if t != models.TorpedoStandard {
			if err := ship.ConsumeTorpedo(s.ship, t); err != nil {
				return err
			}
			s.markShip()
		}
		st.TorpedoesLoaded--
		c.emit(Event{Kind: EventTorpedoFired})

		if torp.Defensive {
			rep.Entry = s.entry(fmt.Sprintf("%s deployed - %s", torp.Name, torp.Effect), models.LogDefense,
				map[string]any{"torpedo": string(t)})
			prependLog(st, rep.Entry)
			c.patch(models.StatePatch{TorpedoesLoaded: intp(st.TorpedoesLoaded), CombatLog: st.CombatLog})
			return nil
		}

		dmg, err := game.RollWeaponDamage(s.roller, models.Weapon{Name: torp.Name, Damage: torp.Damage}, torp.Advantage)
		if err != nil {
			return err
		}
		rep.Damage = &dmg
		var shift *int
		if torp.ArmorBreak {
			shift = intp(-1)
		}
		var hit DamageReport
		if err := s.landHit(st, c, target, dmg.Total, shift, &hit); err != nil {
			return err
		}
		rep.Hit = &hit
		rep.Entry = hit.Entry
		c.patch(models.StatePatch{
			TorpedoesLoaded: intp(st.TorpedoesLoaded),
			CombatLog:       st.CombatLog,
			Enemies:         cloneEnemies(st.Enemies),
		})
		return nil
	})
	return rep, err
}
