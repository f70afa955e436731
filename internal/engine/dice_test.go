package engine

import (
	"math/rand"
	"testing"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
)

func TestRollDieRange(t *testing.T) {
	r := NewRoller(rand.New(rand.NewSource(42)))
	for _, sides := range []int{1, 2, 4, 6, 8, 20} {
		for i := 0; i < 200; i++ {
			v, err := r.RollDie(sides)
			if err != nil {
				t.Fatalf("d%d: %v", sides, err)
			}
			if v < 1 || v > sides {
				t.Fatalf("d%d rolled %d", sides, v)
			}
		}
	}
}

func TestRollDieRejectsNoSides(t *testing.T) {
	r := Fixed(1)
	for _, sides := range []int{0, -3} {
		if _, err := r.RollDie(sides); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
			t.Fatalf("sides %d: expected invalid roll spec, got %v", sides, err)
		}
	}
}

func TestRollSumsFaces(t *testing.T) {
	rolls, total, err := Fixed(4, 5).Roll(2, 6)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if len(rolls) != 2 || rolls[0] != 4 || rolls[1] != 5 || total != 9 {
		t.Fatalf("expected [4 5]=9, got %v=%d", rolls, total)
	}
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in   string
		want Pattern
	}{
		{"1d6", Pattern{Count: 1, Sides: 6}},
		{"d8", Pattern{Count: 1, Sides: 8}},
		{" 2D10 ", Pattern{Count: 2, Sides: 10}},
		{"1d4+2", Pattern{Count: 1, Sides: 4, Op: "+", Modifier: 2}},
		{"3d6 - 1", Pattern{Count: 3, Sides: 6, Op: "-", Modifier: 1}},
		{"2d6*2", Pattern{Count: 2, Sides: 6, Op: "x", Modifier: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePattern(tt.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParsePatternRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "6", "d", "1d0", "0d6", "two d6", "1d6+"} {
		if _, err := ParsePattern(in); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
			t.Fatalf("%q: expected invalid roll spec, got %v", in, err)
		}
	}
}

func TestDiceLimits(t *testing.T) {
	for _, in := range []string{"2000000000d6", "101d6", "1d1001", "99999999999999999999d6", "1d6x1001", "1d6+99999999999999999999"} {
		if _, err := ParsePattern(in); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
			t.Fatalf("%q: expected invalid roll spec, got %v", in, err)
		}
	}
	if _, err := ParsePattern("100d1000+1000"); err != nil {
		t.Fatalf("expected the limits themselves to parse, got %v", err)
	}

	r := Fixed(1)
	if _, _, err := r.Roll(MaxDice+1, 6); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
		t.Fatalf("expected count cap, got %v", err)
	}
	if _, err := r.RollDie(MaxSides + 1); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
		t.Fatalf("expected sides cap, got %v", err)
	}
}

func TestRollPatternFloorsAtZero(t *testing.T) {
	res, err := Fixed(1).RollPattern("1d4-3")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if res.Total != 0 {
		t.Fatalf("expected 0, got %d", res.Total)
	}
}

func TestRollTest(t *testing.T) {
	tests := []struct {
		name        string
		faces       []int
		req         TestRequest
		wantRoll    int
		wantDropped *int
		wantSuccess bool
		wantCrit    bool
		wantBlunder bool
	}{
		{name: "natural twenty succeeds", faces: []int{20}, req: TestRequest{Ability: -3, Difficulty: 30}, wantRoll: 20, wantSuccess: true, wantCrit: true},
		{name: "natural one fails", faces: []int{1}, req: TestRequest{Ability: 15, Difficulty: 2}, wantRoll: 1, wantBlunder: true},
		{name: "meets difficulty", faces: []int{10}, req: TestRequest{Ability: 2, Difficulty: 12}, wantRoll: 10, wantSuccess: true},
		{name: "misses difficulty", faces: []int{9}, req: TestRequest{Ability: 2, Difficulty: 12}, wantRoll: 9},
		{name: "advantage keeps higher", faces: []int{5, 14}, req: TestRequest{Difficulty: 12, Advantage: true}, wantRoll: 14, wantDropped: intp(5), wantSuccess: true},
		{name: "disadvantage keeps lower", faces: []int{5, 14}, req: TestRequest{Difficulty: 12, Disadvantage: true}, wantRoll: 5, wantDropped: intp(14)},
		{name: "both flags cancel", faces: []int{7, 19}, req: TestRequest{Difficulty: 12, Advantage: true, Disadvantage: true}, wantRoll: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Fixed(tt.faces...).RollTest(tt.req)
			if err != nil {
				t.Fatalf("roll test: %v", err)
			}
			if res.Roll != tt.wantRoll {
				t.Fatalf("expected roll %d, got %d", tt.wantRoll, res.Roll)
			}
			if (tt.wantDropped == nil) != (res.Discarded == nil) {
				t.Fatalf("expected discarded %v, got %v", tt.wantDropped, res.Discarded)
			}
			if tt.wantDropped != nil && *tt.wantDropped != *res.Discarded {
				t.Fatalf("expected discarded %d, got %d", *tt.wantDropped, *res.Discarded)
			}
			if res.Success != tt.wantSuccess || res.Crit != tt.wantCrit || res.Blunder != tt.wantBlunder {
				t.Fatalf("unexpected outcome %+v", res)
			}
			if res.Total != res.Roll+tt.req.Ability {
				t.Fatalf("expected total %d, got %d", res.Roll+tt.req.Ability, res.Total)
			}
		})
	}
}

func TestRollTestRejectsBadDifficulty(t *testing.T) {
	if _, err := Fixed(10).RollTest(TestRequest{Difficulty: 0}); !apperrors.HasCode(err, apperrors.CodeInvalidRollSpec) {
		t.Fatalf("expected invalid roll spec, got %v", err)
	}
}

func TestNewRandomRoller(t *testing.T) {
	r, err := NewRandomRoller()
	if err != nil {
		t.Fatalf("new roller: %v", err)
	}
	if v, err := r.RollDie(20); err != nil || v < 1 || v > 20 {
		t.Fatalf("unexpected roll %d, %v", v, err)
	}
}

func intp(v int) *int { return &v }
