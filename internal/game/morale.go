package game

import (
	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// MaxDifficultyAdjustment bounds the DR adjustment offered to players.
const MaxDifficultyAdjustment = 4

// MoraleCheck rolls 2d6 against threshold. A total above the threshold
// demoralizes the unit; a further d6 of 1-4 makes it flee, 5-6 surrender.
func MoraleCheck(r *engine.Roller, threshold int) (MoraleResult, error) {
	dice, total, err := r.Roll(2, 6)
	if err != nil {
		return MoraleResult{}, err
	}
	res := MoraleResult{
		Dice:      [2]int{dice[0], dice[1]},
		Total:     total,
		Threshold: threshold,
	}
	if total <= threshold {
		return res, nil
	}
	res.Demoralized = true
	roll, err := r.RollDie(6)
	if err != nil {
		return MoraleResult{}, err
	}
	res.OutcomeRoll = roll
	if roll <= 4 {
		res.Outcome = models.StatusFleeing
	} else {
		res.Outcome = models.StatusSurrendered
	}
	return res, nil
}

// AdjustDifficulty applies an adjustment to a base DR. Any integer is
// accepted here; ClampAdjustment enforces the player-facing range.
func AdjustDifficulty(base, adjust int) int {
	return base + adjust
}

// ClampAdjustment limits a DR adjustment to ±MaxDifficultyAdjustment.
func ClampAdjustment(adjust int) int {
	if adjust > MaxDifficultyAdjustment {
		return MaxDifficultyAdjustment
	}
	if adjust < -MaxDifficultyAdjustment {
		return -MaxDifficultyAdjustment
	}
	return adjust
}
