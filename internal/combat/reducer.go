package combat

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// Update is one input to Reduce.
type Update interface {
	reduce(models.CombatState) models.CombatState
}

// SnapshotUpdate carries a room document snapshot. It replaces the whole
// local state; a document without spaceCombat leaves the state untouched.
type SnapshotUpdate struct {
	State *models.CombatState
	Ship  *models.Ship
}

func (u SnapshotUpdate) reduce(st models.CombatState) models.CombatState {
	if u.State == nil {
		return st
	}
	next := u.State.Clone()
	if next.StationAssignments == nil {
		next.StationAssignments = map[models.StationID]*models.CharacterID{}
	}
	for _, id := range models.Stations {
		if _, ok := next.StationAssignments[id]; !ok {
			next.StationAssignments[id] = nil
		}
	}
	if next.CombatLog == nil {
		next.CombatLog = []models.LogEntry{}
	}
	if next.Enemies == nil {
		next.Enemies = []models.Enemy{}
	}
	return next
}

// HPAdjustUpdate carries an ENEMY_HP_ADJUST broadcast.
type HPAdjustUpdate models.EnemyHPAdjust

func (u HPAdjustUpdate) reduce(st models.CombatState) models.CombatState {
	i := st.FindEnemy(u.EnemyID)
	if i < 0 {
		return st
	}
	next := st.Clone()
	e := &next.Enemies[i]
	hp := u.NewHP
	if e.HP.Max != nil {
		if hp < 0 {
			hp = 0
		}
		if hp > *e.HP.Max {
			hp = *e.HP.Max
		}
		e.HP.Current = hp
	}
	if u.NewStatus.Valid() {
		e.Status = u.NewStatus
	}
	return next
}

// PatchUpdate carries a COMBAT_STATE_UPDATE broadcast. Present fields
// replace local ones.
type PatchUpdate models.StatePatch

func (u PatchUpdate) reduce(st models.CombatState) models.CombatState {
	next := st.Clone()
	if u.IsActive != nil {
		next.IsActive = *u.IsActive
	}
	if u.ShipArmor != nil {
		next.ShipArmor = *u.ShipArmor
	}
	if u.TorpedoesLoaded != nil {
		next.TorpedoesLoaded = *u.TorpedoesLoaded
	}
	if u.HyperdriveCharge != nil {
		next.HyperdriveCharge = *u.HyperdriveCharge
	}
	for k, v := range u.StationAssignments {
		if v == nil {
			next.StationAssignments[k] = nil
			continue
		}
		c := *v
		next.StationAssignments[k] = &c
	}
	if u.CombatLog != nil {
		next.CombatLog = append([]models.LogEntry{}, u.CombatLog...)
		if len(next.CombatLog) > models.MaxCombatLog {
			next.CombatLog = next.CombatLog[:models.MaxCombatLog]
		}
	}
	if u.Enemies != nil {
		next.Enemies = make([]models.Enemy, len(u.Enemies))
		for i, e := range u.Enemies {
			next.Enemies[i] = e.Clone()
		}
	}
	return next
}

// Reduce folds an update into state without mutating the input.
func Reduce(state models.CombatState, u Update) models.CombatState {
	if u == nil {
		return state
	}
	return u.reduce(state)
}

// DecodeMessage turns a broadcast message into an Update.
func DecodeMessage(msg models.Message) (Update, error) {
	switch msg.Type {
	case models.MessageEnemyHPAdjust:
		var p models.EnemyHPAdjust
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "decode ENEMY_HP_ADJUST", err)
		}
		return HPAdjustUpdate(p), nil
	case models.MessageCombatStateUpdate:
		var p models.StatePatch
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "decode COMBAT_STATE_UPDATE", err)
		}
		return PatchUpdate(p), nil
	}
	return nil, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown message type %q", msg.Type))
}
