// Package engine rolls dice for the combat rules.
//
// Rolls go through a Roller, which wraps a Source. Production code seeds a
// math/rand source from crypto/rand; tests drive the Roller with a Sequence
// to force exact faces.
package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
)

var diceRe = regexp.MustCompile(`(?i)^\s*(\d+)?\s*d\s*(\d+)(\s*([+\-x*])\s*(\d+))?\s*$`)

// Limits on a single roll.
const (
	MaxDice     = 100
	MaxSides    = 1000
	MaxModifier = 1000
)

// Source yields integers in [0, n).
type Source interface {
	Intn(n int) int
}

// Roller is safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	src Source
}

// NewRoller returns a Roller drawing from src.
func NewRoller(src Source) *Roller {
	return &Roller{src: src}
}

// NewRandomRoller returns a Roller backed by math/rand seeded from crypto/rand.
func NewRandomRoller() (*Roller, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewRoller(rand.New(rand.NewSource(seed))), nil
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func invalidSpec(format string, args ...any) error {
	return apperrors.New(apperrors.CodeInvalidRollSpec, fmt.Sprintf(format, args...))
}

// RollDie rolls one die with the given number of sides.
func (r *Roller) RollDie(sides int) (int, error) {
	if sides < 1 || sides > MaxSides {
		return 0, invalidSpec("die must have 1 to %d sides, got %d", MaxSides, sides)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(sides) + 1, nil
}

// Roll rolls count dice of the given sides and returns each face and the sum.
func (r *Roller) Roll(count, sides int) ([]int, int, error) {
	if count < 1 || count > MaxDice {
		return nil, 0, invalidSpec("dice count must be 1 to %d, got %d", MaxDice, count)
	}
	if sides < 1 || sides > MaxSides {
		return nil, 0, invalidSpec("die must have 1 to %d sides, got %d", MaxSides, sides)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rolls := make([]int, count)
	total := 0
	for i := range rolls {
		rolls[i] = r.src.Intn(sides) + 1
		total += rolls[i]
	}
	return rolls, total, nil
}

// Pattern is a parsed NdM[+K] expression.
type Pattern struct {
	Count    int
	Sides    int
	Op       string // "", "+", "-", "x"
	Modifier int
}

func (p Pattern) String() string {
	s := fmt.Sprintf("%dd%d", p.Count, p.Sides)
	if p.Op != "" {
		s += p.Op + strconv.Itoa(p.Modifier)
	}
	return s
}

// ParsePattern supports NdM, dM, NdM+K, NdM-K and NdM xK / *K.
func ParsePattern(expr string) (Pattern, error) {
	m := diceRe.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return Pattern{}, invalidSpec("malformed dice pattern %q", expr)
	}
	p := Pattern{Count: 1}
	var err error
	if m[1] != "" {
		if p.Count, err = strconv.Atoi(m[1]); err != nil {
			return Pattern{}, invalidSpec("dice count in %q out of range", expr)
		}
	}
	if p.Sides, err = strconv.Atoi(m[2]); err != nil {
		return Pattern{}, invalidSpec("die sides in %q out of range", expr)
	}
	if p.Count < 1 || p.Sides < 1 {
		return Pattern{}, invalidSpec("dice pattern %q needs positive count and sides", expr)
	}
	if p.Count > MaxDice || p.Sides > MaxSides {
		return Pattern{}, invalidSpec("dice pattern %q exceeds %dd%d", expr, MaxDice, MaxSides)
	}
	if m[3] != "" {
		p.Op = m[4]
		if p.Op == "*" {
			p.Op = "x"
		}
		if p.Modifier, err = strconv.Atoi(m[5]); err != nil || p.Modifier > MaxModifier {
			return Pattern{}, invalidSpec("modifier in %q exceeds %d", expr, MaxModifier)
		}
	}
	return p, nil
}

// PatternResult holds the faces and the modified total of a pattern roll.
type PatternResult struct {
	Pattern Pattern
	Rolls   []int
	Total   int
}

// RollPattern parses and rolls expr. Totals never go below zero.
func (r *Roller) RollPattern(expr string) (PatternResult, error) {
	p, err := ParsePattern(expr)
	if err != nil {
		return PatternResult{}, err
	}
	rolls, total, err := r.Roll(p.Count, p.Sides)
	if err != nil {
		return PatternResult{}, err
	}
	switch p.Op {
	case "+":
		total += p.Modifier
	case "-":
		total -= p.Modifier
	case "x":
		total *= p.Modifier
	}
	if total < 0 {
		total = 0
	}
	return PatternResult{Pattern: p, Rolls: rolls, Total: total}, nil
}

// ========================= Tests =========================

// RollMode is how a d20 test is rolled.
type RollMode string

const (
	ModeNormal       RollMode = "normal"
	ModeAdvantage    RollMode = "advantage"
	ModeDisadvantage RollMode = "disadvantage"
)

// TestRequest describes a d20 test against a difficulty rating.
type TestRequest struct {
	Ability      int  `json:"ability"`
	Difficulty   int  `json:"difficulty"`
	Advantage    bool `json:"advantage"`
	Disadvantage bool `json:"disadvantage"`
}

// Mode resolves the roll mode. Advantage and disadvantage cancel out.
func (q TestRequest) Mode() RollMode {
	switch {
	case q.Advantage && !q.Disadvantage:
		return ModeAdvantage
	case q.Disadvantage && !q.Advantage:
		return ModeDisadvantage
	default:
		return ModeNormal
	}
}

// TestResult is the outcome of RollTest. Roll is the kept d20.
type TestResult struct {
	Roll       int      `json:"roll"`
	Discarded  *int     `json:"discarded,omitempty"`
	Ability    int      `json:"ability"`
	Total      int      `json:"total"`
	Difficulty int      `json:"difficulty"`
	Success    bool     `json:"success"`
	Crit       bool     `json:"crit"`
	Blunder    bool     `json:"blunder"`
	Mode       RollMode `json:"mode"`
}

// RollTest rolls a d20 test. A natural 20 always succeeds and a natural 1
// always fails.
func (r *Roller) RollTest(req TestRequest) (TestResult, error) {
	if req.Difficulty < 1 {
		return TestResult{}, invalidSpec("difficulty must be at least 1, got %d", req.Difficulty)
	}
	res := TestResult{Ability: req.Ability, Difficulty: req.Difficulty, Mode: req.Mode()}

	if res.Mode == ModeNormal {
		roll, err := r.RollDie(20)
		if err != nil {
			return TestResult{}, err
		}
		res.Roll = roll
	} else {
		rolls, _, err := r.Roll(2, 20)
		if err != nil {
			return TestResult{}, err
		}
		kept, dropped := rolls[0], rolls[1]
		if (res.Mode == ModeAdvantage && dropped > kept) || (res.Mode == ModeDisadvantage && dropped < kept) {
			kept, dropped = dropped, kept
		}
		res.Roll = kept
		res.Discarded = &dropped
	}

	res.Crit = res.Roll == 20
	res.Blunder = res.Roll == 1
	res.Total = res.Roll + req.Ability
	switch {
	case res.Crit:
		res.Success = true
	case res.Blunder:
		res.Success = false
	default:
		res.Success = res.Total >= req.Difficulty
	}
	return res, nil
}
