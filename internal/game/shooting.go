package game

import (
	"fmt"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// MaxArmorTier is the highest armor tier any unit can have.
const MaxArmorTier = 3

// armorDice maps an armor tier to the reduction die rolled against a hit.
var armorDice = [MaxArmorTier + 1]int{0, 2, 4, 6}

// ArmorDie returns the reduction die for tier, 0 for no armor.
func ArmorDie(tier int) int {
	if tier < 0 || tier > MaxArmorTier {
		return 0
	}
	return armorDice[tier]
}

func weaponDice(w models.Weapon) (int, int, error) {
	count, sides := w.DiceCount, w.DiceSides
	if count == 0 && sides == 0 && w.Damage != "" {
		p, err := engine.ParsePattern(w.Damage)
		if err != nil {
			return 0, 0, err
		}
		count, sides = p.Count, p.Sides
	}
	if count < 1 || sides < 1 {
		return 0, 0, apperrors.New(apperrors.CodeInvalidRollSpec,
			fmt.Sprintf("weapon %q has invalid dice %dd%d", w.Name, count, sides))
	}
	return count, sides, nil
}

// RollWeaponDamage rolls the weapon's damage dice. With advantage (passed in
// or declared by the weapon) each die is rolled twice and the higher kept.
func RollWeaponDamage(r *engine.Roller, w models.Weapon, advantage bool) (DamageResult, error) {
	count, sides, err := weaponDice(w)
	if err != nil {
		return DamageResult{}, err
	}
	advantage = advantage || w.Advantage
	res := DamageResult{
		Weapon:    w.Name,
		Damage:    w.Damage,
		Rolls:     make([]DieRoll, 0, count),
		Advantage: advantage,
	}
	if res.Damage == "" {
		res.Damage = fmt.Sprintf("%dd%d", count, sides)
	}
	for i := 0; i < count; i++ {
		faces := 1
		if advantage {
			faces = 2
		}
		rolls, _, err := r.Roll(faces, sides)
		if err != nil {
			return DamageResult{}, err
		}
		kept := rolls[0]
		if len(rolls) > 1 && rolls[1] > kept {
			kept = rolls[1]
		}
		res.Rolls = append(res.Rolls, DieRoll{Faces: rolls, Kept: kept})
		res.Total += kept
	}
	return res, nil
}

// ApplyArmor reduces raw damage by the armor tier's die. Tier 0 passes the
// damage through without rolling.
func ApplyArmor(r *engine.Roller, raw, tier int) (ArmorResult, error) {
	if raw < 0 {
		return ArmorResult{}, apperrors.New(apperrors.CodeInvalidRollSpec,
			fmt.Sprintf("raw damage must not be negative, got %d", raw))
	}
	if tier < 0 || tier > MaxArmorTier {
		return ArmorResult{}, apperrors.New(apperrors.CodeInvalidRollSpec,
			fmt.Sprintf("armor tier must be 0..%d, got %d", MaxArmorTier, tier))
	}
	res := ArmorResult{Raw: raw, Tier: tier, Final: raw}
	if tier == 0 {
		return res, nil
	}
	res.Die = armorDice[tier]
	roll, err := r.RollDie(res.Die)
	if err != nil {
		return ArmorResult{}, err
	}
	res.Reduction = roll
	res.Final = raw - roll
	if res.Final < 0 {
		res.Final = 0
	}
	return res, nil
}

// ArmorTier reads an optional armor value; nil means no armor.
func ArmorTier(armor *int) int {
	if armor == nil {
		return 0
	}
	return *armor
}

// ResolveShooting rolls a weapon volley against a target with the given
// armor tier and logs each step.
func ResolveShooting(r *engine.Roller, w models.Weapon, advantage bool, armorTier int) (ShootingResult, error) {
	logs := []string{}
	dmg, err := RollWeaponDamage(r, w, advantage)
	if err != nil {
		return ShootingResult{}, err
	}
	if dmg.Advantage {
		logs = append(logs, fmt.Sprintf("%s rolls %s with advantage", w.Name, dmg.Damage))
	}
	for i, d := range dmg.Rolls {
		if len(d.Faces) > 1 {
			logs = append(logs, fmt.Sprintf("Damage die %d: %v -> %d", i+1, d.Faces, d.Kept))
		} else {
			logs = append(logs, fmt.Sprintf("Damage die %d: %d", i+1, d.Kept))
		}
	}
	logs = append(logs, fmt.Sprintf("Raw damage: %d", dmg.Total))

	armor, err := ApplyArmor(r, dmg.Total, armorTier)
	if err != nil {
		return ShootingResult{}, err
	}
	if armor.Die > 0 {
		logs = append(logs, fmt.Sprintf("Armor tier %d: -d%d rolled %d", armor.Tier, armor.Die, armor.Reduction))
	} else {
		logs = append(logs, "No armor")
	}
	logs = append(logs, fmt.Sprintf("Final damage: %d", armor.Final))

	return ShootingResult{Logs: logs, Damage: dmg, Armor: armor}, nil
}
