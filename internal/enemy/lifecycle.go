package enemy

import (
	"fmt"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/game"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// SquadthinkSize is the number of active same-type units that boosts morale.
const SquadthinkSize = 4

// Transition moves e to status. Active units may move anywhere; fleeing and
// surrendered units may still be destroyed; destroyed units only return
// through AdjustHP. Moving to the current status is a no-op.
func Transition(e *models.Enemy, to models.EnemyStatus) error {
	if !to.Valid() {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown status %q", to))
	}
	if e.Status == to {
		return nil
	}
	switch e.Status {
	case models.StatusActive:
	case models.StatusFleeing, models.StatusSurrendered:
		if to != models.StatusDestroyed {
			return invalidTransition(e, to)
		}
	default:
		return invalidTransition(e, to)
	}
	e.Status = to
	if to == models.StatusDestroyed && e.HP.Max != nil {
		e.HP.Current = 0
	}
	return nil
}

func invalidTransition(e *models.Enemy, to models.EnemyStatus) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidOperation,
		fmt.Sprintf("%s cannot go from %s to %s", e.Name, e.Status, to),
		map[string]string{"enemyId": e.ID})
}

// AdjustHP adds delta to the current HP, clamped to [0, max]. Reaching 0
// destroys the unit; rising above 0 revives a destroyed unit. Impervious
// units are untouched. It reports whether anything changed.
func AdjustHP(e *models.Enemy, delta int) bool {
	if e.HP.Invulnerable() {
		return false
	}
	return SetHP(e, e.HP.Current+delta)
}

// SetHP sets the current HP with the same clamping and status rules as
// AdjustHP.
func SetHP(e *models.Enemy, hp int) bool {
	if e.HP.Invulnerable() {
		return false
	}
	if hp < 0 {
		hp = 0
	}
	if hp > *e.HP.Max {
		hp = *e.HP.Max
	}
	before, status := e.HP.Current, e.Status
	e.HP.Current = hp
	switch {
	case hp == 0:
		e.Status = models.StatusDestroyed
	case e.Status == models.StatusDestroyed:
		e.Status = models.StatusActive
	}
	return before != e.HP.Current || status != e.Status
}

// Hit describes damage landed on an enemy.
type Hit struct {
	Armor      game.ArmorResult `json:"armor"`
	HPBefore   int              `json:"hpBefore"`
	HPAfter    int              `json:"hpAfter"`
	Destroyed  bool             `json:"destroyed"`
	FodderKill bool             `json:"fodderKill"`
	Impervious bool             `json:"impervious"`
}

// ApplyHit lands final (post-armor) damage. Any positive damage destroys a
// fodder unit outright.
func ApplyHit(e *models.Enemy, armor game.ArmorResult) Hit {
	h := Hit{Armor: armor, HPBefore: e.HP.Current}
	if e.HP.Invulnerable() {
		h.Impervious = true
		h.HPAfter = e.HP.Current
		return h
	}
	if armor.Final > 0 && e.Fodder {
		h.FodderKill = e.HP.Current > armor.Final
		SetHP(e, 0)
	} else {
		SetHP(e, e.HP.Current-armor.Final)
	}
	h.HPAfter = e.HP.Current
	h.Destroyed = e.Status == models.StatusDestroyed
	return h
}

// MoraleThreshold returns the morale threshold for e among roster. It
// reports false for units that cannot be demoralized. Squadthink raises the
// threshold when SquadthinkSize or more active units of the same type exist
// and the template declares a boosted value.
func MoraleThreshold(e models.Enemy, roster []models.Enemy) (int, bool) {
	if e.Morale == nil {
		return 0, false
	}
	tpl, ok := Templates[TemplateKey(e.Type)]
	if !ok || tpl.MoraleBoosted == nil {
		return *e.Morale, true
	}
	n := 0
	for _, other := range roster {
		if other.Type == e.Type && other.Status == models.StatusActive {
			n++
		}
	}
	if n >= SquadthinkSize {
		return *tpl.MoraleBoosted, true
	}
	return *e.Morale, true
}

// CountActive returns the number of active enemies.
func CountActive(roster []models.Enemy) int {
	n := 0
	for _, e := range roster {
		if e.Status == models.StatusActive {
			n++
		}
	}
	return n
}
