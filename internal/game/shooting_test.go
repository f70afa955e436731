package game

import (
	"math/rand"
	"testing"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

func TestRollWeaponDamage(t *testing.T) {
	w := models.Weapon{Name: "Turbo Laser", Damage: "2d6", DiceCount: 2, DiceSides: 6}
	res, err := RollWeaponDamage(engine.Fixed(3, 5), w, false)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if res.Total != 8 || len(res.Rolls) != 2 {
		t.Fatalf("expected 2 dice totalling 8, got %+v", res)
	}
	if res.Advantage {
		t.Fatal("advantage should be off")
	}
}

func TestRollWeaponDamageAdvantageKeepsHigher(t *testing.T) {
	w := models.Weapon{Name: "Twin Turbo Turrets", Damage: "1d8", DiceCount: 1, DiceSides: 8, Advantage: true}
	res, err := RollWeaponDamage(engine.Fixed(2, 7), w, false)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if !res.Advantage {
		t.Fatal("weapon advantage should apply")
	}
	if res.Total != 7 || len(res.Rolls[0].Faces) != 2 {
		t.Fatalf("expected kept 7 of two faces, got %+v", res.Rolls)
	}
}

func TestRollWeaponDamageFromPattern(t *testing.T) {
	res, err := RollWeaponDamage(engine.Fixed(4), models.Weapon{Name: "Beam Gun", Damage: "1d4"}, false)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if res.Total != 4 {
		t.Fatalf("expected 4, got %d", res.Total)
	}
}

func TestRollWeaponDamageRejectsBadDice(t *testing.T) {
	for _, w := range []models.Weapon{
		{Name: "empty"},
		{Name: "zero sides", DiceCount: 1},
		{Name: "garbage", Damage: "lots"},
	} {
		if _, err := RollWeaponDamage(engine.Fixed(1), w, false); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
			t.Fatalf("%s: expected invalid roll spec, got %v", w.Name, err)
		}
	}
}

func TestApplyArmor(t *testing.T) {
	tests := []struct {
		name      string
		raw       int
		tier      int
		face      int
		wantDie   int
		wantFinal int
	}{
		{name: "no armor", raw: 5, tier: 0, face: 6, wantDie: 0, wantFinal: 5},
		{name: "tier one", raw: 5, tier: 1, face: 2, wantDie: 2, wantFinal: 3},
		{name: "tier two", raw: 5, tier: 2, face: 4, wantDie: 4, wantFinal: 1},
		{name: "tier three floors at zero", raw: 3, tier: 3, face: 6, wantDie: 6, wantFinal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ApplyArmor(engine.Fixed(tt.face), tt.raw, tt.tier)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if res.Die != tt.wantDie || res.Final != tt.wantFinal {
				t.Fatalf("expected d%d final %d, got %+v", tt.wantDie, tt.wantFinal, res)
			}
		})
	}
}

func TestApplyArmorNeverIncreasesDamage(t *testing.T) {
	r := engine.NewRoller(rand.New(rand.NewSource(7)))
	for raw := 0; raw <= 12; raw++ {
		for tier := 0; tier <= MaxArmorTier; tier++ {
			res, err := ApplyArmor(r, raw, tier)
			if err != nil {
				t.Fatalf("raw %d tier %d: %v", raw, tier, err)
			}
			if res.Final > raw || res.Final < 0 {
				t.Fatalf("raw %d tier %d produced %d", raw, tier, res.Final)
			}
			if tier == 0 && res.Final != raw {
				t.Fatalf("tier 0 must pass damage through, got %d", res.Final)
			}
		}
	}
}

func TestApplyArmorRejectsBadInput(t *testing.T) {
	if _, err := ApplyArmor(engine.Fixed(1), -1, 1); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
		t.Fatalf("expected invalid roll spec for negative damage, got %v", err)
	}
	if _, err := ApplyArmor(engine.Fixed(1), 3, 4); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
		t.Fatalf("expected invalid roll spec for tier 4, got %v", err)
	}
}

func TestResolveShootingLogsSteps(t *testing.T) {
	w := models.Weapon{Name: "Particle Beam", Damage: "1d8", DiceCount: 1, DiceSides: 8}
	res, err := ResolveShooting(engine.Fixed(6, 2), w, false, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Damage.Total != 6 || res.Armor.Final != 4 {
		t.Fatalf("expected 6 raw 4 final, got %+v", res)
	}
	if len(res.Logs) == 0 || res.Logs[len(res.Logs)-1] != "Final damage: 4" {
		t.Fatalf("unexpected logs %v", res.Logs)
	}
}
