package combat

import (
	"context"
	"fmt"
	"strings"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/enemy"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/game"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

func cloneEnemies(in []models.Enemy) []models.Enemy {
	out := make([]models.Enemy, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

func (s *Store) enemyNotFound(id string) error {
	s.logger.Warnf("room %s: enemy %s not found", s.room, id)
	return apperrors.WithMetadata(apperrors.CodeNotFound,
		fmt.Sprintf("enemy %s not found", id), map[string]string{"enemyId": id})
}

// AddEnemy appends one enemy and logs its arrival.
func (s *Store) AddEnemy(ctx context.Context, e models.Enemy) error {
	return s.AddEnemies(ctx, []models.Enemy{e})
}

// AddEnemies appends enemies and writes one log entry naming them all.
func (s *Store) AddEnemies(ctx context.Context, enemies []models.Enemy) error {
	if len(enemies) == 0 {
		return nil
	}
	names := make([]string, len(enemies))
	ids := make([]string, len(enemies))
	for i, e := range enemies {
		if e.ID == "" {
			return apperrors.New(apperrors.CodeInvalidArgument, "enemy id is required")
		}
		names[i] = e.Name
		ids[i] = e.ID
	}
	msg := fmt.Sprintf("%s enters combat!", names[0])
	if len(enemies) > 1 {
		msg = fmt.Sprintf("Squad deployed: %s", strings.Join(names, ", "))
	}
	entry := s.entry(msg, models.LogEnemy, map[string]any{"enemyIds": ids})

	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		for _, e := range enemies {
			st.Enemies = append(st.Enemies, e.Clone())
		}
		prependLog(st, entry)
		c.patch(models.StatePatch{Enemies: cloneEnemies(st.Enemies), CombatLog: st.CombatLog})
		kind := EventEnemySpawn
		if enemies[0].Type == string(enemy.Dreadnought) {
			kind = EventDreadnoughtSpawn
		}
		c.emit(Event{Kind: kind, EnemyID: enemies[0].ID, Value: len(enemies)})
		s.logger.Infof("room %s: %s", s.room, msg)
		return nil
	})
}

// SpawnEnemies creates count enemies of the given type through the registry
// and adds them. A count of one creates a single unsuffixed unit.
func (s *Store) SpawnEnemies(ctx context.Context, key enemy.TemplateKey, count int, build enemy.BuildKey) ([]models.Enemy, error) {
	var (
		spawned []models.Enemy
		err     error
	)
	if count <= 1 {
		var e models.Enemy
		e, err = s.registry.Create(key, enemy.Options{Build: build})
		spawned = []models.Enemy{e}
	} else {
		spawned, err = s.registry.CreateSquad(key, count, enemy.Options{Build: build})
	}
	if err != nil {
		return nil, err
	}
	if err := s.AddEnemies(ctx, spawned); err != nil {
		return nil, err
	}
	return spawned, nil
}

// SpawnRandom adds a weighted random encounter.
func (s *Store) SpawnRandom(ctx context.Context) ([]models.Enemy, error) {
	spawned, err := s.registry.RandomSpawn(s.roller)
	if err != nil {
		return nil, err
	}
	if err := s.AddEnemies(ctx, spawned); err != nil {
		return nil, err
	}
	return spawned, nil
}

// UpdateEnemy shallow-merges patch into the enemy. HP and status are kept
// consistent afterwards.
func (s *Store) UpdateEnemy(ctx context.Context, id string, patch models.EnemyPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown status %q", *patch.Status))
	}
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		i := st.FindEnemy(id)
		if i < 0 {
			return s.enemyNotFound(id)
		}
		e := &st.Enemies[i]
		patch.Apply(e)
		if e.HP.Max != nil {
			switch {
			case e.Status == models.StatusDestroyed:
				e.HP.Current = 0
			case e.HP.Current <= 0:
				e.HP.Current = 0
				e.Status = models.StatusDestroyed
			case e.HP.Current > *e.HP.Max:
				e.HP.Current = *e.HP.Max
			}
		}
		c.patch(models.StatePatch{Enemies: cloneEnemies(st.Enemies)})
		return nil
	})
}

// RemoveEnemy drops an enemy from the roster.
func (s *Store) RemoveEnemy(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		i := st.FindEnemy(id)
		if i < 0 {
			return s.enemyNotFound(id)
		}
		st.Enemies = append(st.Enemies[:i:i], st.Enemies[i+1:]...)
		c.patch(models.StatePatch{Enemies: cloneEnemies(st.Enemies)})
		return nil
	})
}

// ClearAllEnemies empties the roster.
func (s *Store) ClearAllEnemies(ctx context.Context) error {
	return s.mutate(ctx, func(st *models.CombatState, c *change) error {
		st.Enemies = []models.Enemy{}
		c.patch(models.StatePatch{Enemies: []models.Enemy{}})
		s.logger.Infof("room %s: enemies cleared", s.room)
		return nil
	})
}

// DamageReport is the outcome of ApplyDamageToEnemy.
type DamageReport struct {
	Enemy models.Enemy    `json:"enemy"`
	Hit   enemy.Hit       `json:"hit"`
	Entry models.LogEntry `json:"entry"`
}

// ApplyDamageToEnemy runs raw damage through the enemy's armor, updates HP
// and status and logs the breakdown.
func (s *Store) ApplyDamageToEnemy(ctx context.Context, id string, raw int) (DamageReport, error) {
	if raw < 0 {
		return DamageReport{}, apperrors.New(apperrors.CodeInvalidRollSpec, fmt.Sprintf("raw damage must not be negative, got %d", raw))
	}
	var rep DamageReport
	err := s.mutate(ctx, func(st *models.CombatState, c *change) error {
		i := st.FindEnemy(id)
		if i < 0 {
			return s.enemyNotFound(id)
		}
		return s.landHit(st, c, i, raw, nil, &rep)
	})
	return rep, err
}

// landHit applies raw damage to enemy i with the armor rule. armorShift
// permanently lowers the armor tier first. Callers hold s.mu.
func (s *Store) landHit(st *models.CombatState, c *change, i, raw int, armorShift *int, rep *DamageReport) error {
	e := &st.Enemies[i]
	if armorShift != nil && e.Armor != nil {
		e.Armor = intp(clamp(*e.Armor+*armorShift, 0, game.MaxArmorTier))
	}
	armor, err := game.ApplyArmor(s.roller, raw, clamp(game.ArmorTier(e.Armor), 0, game.MaxArmorTier))
	if err != nil {
		return err
	}
	wasDestroyed := e.Status == models.StatusDestroyed
	hit := enemy.ApplyHit(e, armor)

	var msg string
	logType := models.LogDamage
	switch {
	case hit.Impervious:
		msg = fmt.Sprintf("%s is impervious - %d damage has no effect", e.Name, raw)
	case armor.Die > 0:
		msg = fmt.Sprintf("%s takes %d damage (%d - d%d armor roll %d)", e.Name, armor.Final, raw, armor.Die, armor.Reduction)
	default:
		msg = fmt.Sprintf("%s takes %d damage", e.Name, armor.Final)
	}
	if hit.Destroyed {
		logType = models.LogDestroy
		if hit.FodderKill {
			msg += " - single hit destroys it!"
		} else {
			msg += " - DESTROYED!"
		}
		if !wasDestroyed {
			c.emit(Event{Kind: EventEnemyDestroyed, EnemyID: e.ID})
		}
	} else if !hit.Impervious && e.HP.Max != nil {
		msg += fmt.Sprintf(" - %d/%d HP", e.HP.Current, *e.HP.Max)
	}
	if armor.Final > 0 && !hit.Impervious {
		c.emit(Event{Kind: EventEnemyHit, EnemyID: e.ID, Value: armor.Final})
	}

	data := map[string]any{
		"enemyId":     e.ID,
		"rawDamage":   raw,
		"armorTier":   armor.Tier,
		"reduction":   armor.Reduction,
		"finalDamage": armor.Final,
	}
	if armor.Die > 0 {
		data["armorDie"] = fmt.Sprintf("d%d", armor.Die)
	}
	entry := s.entry(msg, logType, data)
	prependLog(st, entry)
	c.patch(models.StatePatch{Enemies: cloneEnemies(st.Enemies), CombatLog: st.CombatLog})
	s.logger.Infof("room %s: %s", s.room, msg)

	*rep = DamageReport{Enemy: e.Clone(), Hit: hit, Entry: entry}
	return nil
}

// AdjustEnemyHp shifts an enemy's HP by delta, clamped to [0, max], and
// broadcasts the result before writing it through.
func (s *Store) AdjustEnemyHp(ctx context.Context, id string, delta int) (models.EnemyHPAdjust, error) {
	var out models.EnemyHPAdjust
	err := s.mutate(ctx, func(st *models.CombatState, c *change) error {
		i := st.FindEnemy(id)
		if i < 0 {
			return s.enemyNotFound(id)
		}
		e := &st.Enemies[i]
		was := e.Status
		enemy.AdjustHP(e, delta)
		out = models.EnemyHPAdjust{EnemyID: e.ID, NewHP: e.HP.Current, NewStatus: e.Status}
		c.msgType = models.MessageEnemyHPAdjust
		c.payload = out
		if e.Status == models.StatusDestroyed && was != models.StatusDestroyed {
			c.emit(Event{Kind: EventEnemyDestroyed, EnemyID: e.ID})
		}
		return nil
	})
	return out, err
}

// AttackReport is the outcome of RollEnemyAttack.
type AttackReport struct {
	Enemy  models.Enemy      `json:"enemy"`
	Damage game.DamageResult `json:"damage"`
	Entry  models.LogEntry   `json:"entry"`
}

// RollEnemyAttack rolls the enemy weapon and logs the result.
func (s *Store) RollEnemyAttack(ctx context.Context, id string) (AttackReport, error) {
	var rep AttackReport
	err := s.mutate(ctx, func(st *models.CombatState, c *change) error {
		i := st.FindEnemy(id)
		if i < 0 {
			return s.enemyNotFound(id)
		}
		e := st.Enemies[i]
		if e.Status != models.StatusActive {
			return apperrors.WithMetadata(apperrors.CodeInvalidOperation,
				fmt.Sprintf("%s is %s and cannot attack", e.Name, e.Status), map[string]string{"enemyId": id})
		}
		dmg, err := game.RollWeaponDamage(s.roller, e.Weapon, false)
		if err != nil {
			return err
		}
		kept := make([]int, len(dmg.Rolls))
		for j, r := range dmg.Rolls {
			kept[j] = r.Kept
		}
		msg := fmt.Sprintf("%s fires %s: %d damage!", e.Name, e.Weapon.Name, dmg.Total)
		if dmg.Advantage {
			msg += " (advantage)"
		}
		entry := s.entry(msg, models.LogEnemy, map[string]any{
			"enemyId":   e.ID,
			"damage":    dmg.Damage,
			"rolls":     kept,
			"total":     dmg.Total,
			"advantage": dmg.Advantage,
		})
		prependLog(st, entry)
		c.patch(models.StatePatch{CombatLog: st.CombatLog})
		c.emit(Event{Kind: EventEnemyAttack, EnemyID: e.ID, Value: dmg.Total})
		rep = AttackReport{Enemy: e.Clone(), Damage: dmg, Entry: entry}
		return nil
	})
	return rep, err
}

// MoraleReport is the outcome of RollEnemyMorale.
type MoraleReport struct {
	Enemy  models.Enemy      `json:"enemy"`
	Result game.MoraleResult `json:"result"`
	Entry  models.LogEntry   `json:"entry"`
}

// RollEnemyMorale checks the enemy's morale and applies a flee or surrender.
func (s *Store) RollEnemyMorale(ctx context.Context, id string) (MoraleReport, error) {
	var rep MoraleReport
	err := s.mutate(ctx, func(st *models.CombatState, c *change) error {
		i := st.FindEnemy(id)
		if i < 0 {
			return s.enemyNotFound(id)
		}
		e := &st.Enemies[i]
		if e.Status != models.StatusActive {
			return apperrors.WithMetadata(apperrors.CodeInvalidOperation,
				fmt.Sprintf("%s is %s", e.Name, e.Status), map[string]string{"enemyId": id})
		}
		threshold, ok := enemy.MoraleThreshold(*e, st.Enemies)
		if !ok {
			return apperrors.WithMetadata(apperrors.CodeInvalidOperation,
				fmt.Sprintf("%s cannot be demoralized", e.Name), map[string]string{"enemyId": id})
		}
		res, err := game.MoraleCheck(s.roller, threshold)
		if err != nil {
			return err
		}

		msg := fmt.Sprintf("%s morale check: %d+%d=%d vs MRL %d - holds steady", e.Name, res.Dice[0], res.Dice[1], res.Total, threshold)
		logType := models.LogMorale
		if res.Demoralized {
			if err := enemy.Transition(e, res.Outcome); err != nil {
				return err
			}
			logType = models.LogMoraleFail
			verb := "flees"
			kind := EventEnemyFlee
			if res.Outcome == models.StatusSurrendered {
				verb = "surrenders"
				kind = EventEnemySurrender
			}
			msg = fmt.Sprintf("%s morale check: %d+%d=%d vs MRL %d - DEMORALIZED, %s! (d6: %d)",
				e.Name, res.Dice[0], res.Dice[1], res.Total, threshold, verb, res.OutcomeRoll)
			c.emit(Event{Kind: kind, EnemyID: e.ID})
		}
		entry := s.entry(msg, logType, map[string]any{
			"enemyId":     e.ID,
			"dice":        []int{res.Dice[0], res.Dice[1]},
			"total":       res.Total,
			"morale":      threshold,
			"demoralized": res.Demoralized,
		})
		prependLog(st, entry)
		c.patch(models.StatePatch{Enemies: cloneEnemies(st.Enemies), CombatLog: st.CombatLog})
		s.logger.Infof("room %s: %s", s.room, msg)
		rep = MoraleReport{Enemy: e.Clone(), Result: res, Entry: entry}
		return nil
	})
	return rep, err
}
