package enemy

import (
	"testing"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/game"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

func mustCreate(t *testing.T, key TemplateKey) models.Enemy {
	t.Helper()
	e, err := fixedRegistry().Create(key, Options{})
	if err != nil {
		t.Fatalf("create %s: %v", key, err)
	}
	return e
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from    models.EnemyStatus
		to      models.EnemyStatus
		wantErr bool
	}{
		{models.StatusActive, models.StatusFleeing, false},
		{models.StatusActive, models.StatusSurrendered, false},
		{models.StatusActive, models.StatusDestroyed, false},
		{models.StatusFleeing, models.StatusDestroyed, false},
		{models.StatusFleeing, models.StatusFleeing, false},
		{models.StatusFleeing, models.StatusActive, true},
		{models.StatusSurrendered, models.StatusFleeing, true},
		{models.StatusDestroyed, models.StatusActive, true},
		{models.StatusDestroyed, models.StatusDestroyed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			e := mustCreate(t, PredatorLeader)
			e.Status = tt.from
			err := Transition(&e, tt.to)
			if tt.wantErr {
				if !apperrors.HasCode(err, apperrors.CodeInvalidOperation) {
					t.Fatalf("expected invalid operation, got %v", err)
				}
				if e.Status != tt.from {
					t.Fatalf("status changed on rejected transition: %s", e.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if e.Status != tt.to {
				t.Fatalf("expected %s, got %s", tt.to, e.Status)
			}
		})
	}
}

func TestTransitionToDestroyedZeroesHP(t *testing.T) {
	e := mustCreate(t, PirateMarauder)
	if err := Transition(&e, models.StatusDestroyed); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if e.HP.Current != 0 {
		t.Fatalf("expected 0 hp, got %d", e.HP.Current)
	}
}

func TestAdjustHPClampsAndRevives(t *testing.T) {
	e := mustCreate(t, PredatorLeader)

	AdjustHP(&e, -50)
	if e.HP.Current != 0 || e.Status != models.StatusDestroyed {
		t.Fatalf("expected destroyed at 0, got %+v", e)
	}
	AdjustHP(&e, 3)
	if e.HP.Current != 3 || e.Status != models.StatusActive {
		t.Fatalf("expected revived at 3, got %+v", e)
	}
	AdjustHP(&e, 50)
	if e.HP.Current != 12 {
		t.Fatalf("expected clamp to 12, got %d", e.HP.Current)
	}
	if AdjustHP(&e, 1) {
		t.Fatal("adjust at max should report no change")
	}
}

func TestAdjustHPKeepsFleeingWhenAboveZero(t *testing.T) {
	e := mustCreate(t, PredatorLeader)
	e.Status = models.StatusFleeing
	AdjustHP(&e, -2)
	if e.Status != models.StatusFleeing {
		t.Fatalf("expected fleeing to stick, got %s", e.Status)
	}
}

func TestAdjustHPIgnoresImpervious(t *testing.T) {
	e := mustCreate(t, Dreadnought)
	if AdjustHP(&e, -10) {
		t.Fatal("impervious ship should not change")
	}
}

func TestApplyHitFodderAlwaysDies(t *testing.T) {
	e := mustCreate(t, HunterFighter)
	h := ApplyHit(&e, game.ArmorResult{Raw: 1, Final: 1})
	if !h.Destroyed || !h.FodderKill || e.HP.Current != 0 || e.Status != models.StatusDestroyed {
		t.Fatalf("expected fodder kill, got %+v / %+v", h, e)
	}
}

func TestApplyHitZeroDamageSparesFodder(t *testing.T) {
	e := mustCreate(t, HunterFighter)
	h := ApplyHit(&e, game.ArmorResult{Raw: 2, Reduction: 2, Final: 0})
	if h.Destroyed || e.HP.Current != 6 {
		t.Fatalf("expected no damage, got %+v", h)
	}
}

func TestApplyHitRegularDamage(t *testing.T) {
	e := mustCreate(t, PredatorLeader)
	h := ApplyHit(&e, game.ArmorResult{Raw: 7, Final: 5})
	if h.HPBefore != 12 || h.HPAfter != 7 || h.Destroyed {
		t.Fatalf("unexpected hit %+v", h)
	}
}

func TestMoraleThresholdSquadthink(t *testing.T) {
	r := fixedRegistry()
	squad, err := r.CreateSquad(HunterFighter, 4, Options{})
	if err != nil {
		t.Fatalf("squad: %v", err)
	}
	if got, ok := MoraleThreshold(squad[0], squad); !ok || got != 8 {
		t.Fatalf("expected boosted 8, got %d %v", got, ok)
	}
	squad[3].Status = models.StatusDestroyed
	if got, _ := MoraleThreshold(squad[0], squad); got != 7 {
		t.Fatalf("expected base 7 with three active, got %d", got)
	}

	leader := mustCreate(t, PredatorLeader)
	if got, _ := MoraleThreshold(leader, []models.Enemy{leader}); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if _, ok := MoraleThreshold(mustCreate(t, Dreadnought), nil); ok {
		t.Fatal("dreadnought has no morale")
	}
}
