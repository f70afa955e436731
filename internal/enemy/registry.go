package enemy

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// ErrSquadTooLarge is returned by CreateSquad under OverflowError when more
// units are requested than there are suffixes.
var ErrSquadTooLarge = errors.New("squad larger than available suffixes")

// OverflowPolicy decides what CreateSquad does past MaxSquadSize.
type OverflowPolicy int

const (
	// OverflowTruncate silently caps the squad at MaxSquadSize.
	OverflowTruncate OverflowPolicy = iota
	// OverflowError rejects the request with ErrSquadTooLarge.
	OverflowError
)

// ParseOverflowPolicy maps "truncate" and "error" onto a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "", "truncate":
		return OverflowTruncate, nil
	case "error":
		return OverflowError, nil
	}
	return OverflowTruncate, fmt.Errorf("unknown squad overflow policy %q", s)
}

// Options tune a single Create call.
type Options struct {
	Build  BuildKey
	Suffix string
}

// Registry creates enemies with fresh ids and creation times.
type Registry struct {
	newID    func() string
	now      func() time.Time
	overflow OverflowPolicy
	logger   *zap.SugaredLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDs replaces the uuid generator.
func WithIDs(fn func() string) Option { return func(r *Registry) { r.newID = fn } }

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option { return func(r *Registry) { r.now = fn } }

// WithOverflow sets the squad overflow policy.
func WithOverflow(p OverflowPolicy) Option { return func(r *Registry) { r.overflow = p } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l.Sugar()
		}
	}
}

// NewRegistry returns a Registry using uuids, the wall clock and truncation.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		newID:  uuid.NewString,
		now:    time.Now,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create builds one enemy from the template key.
func (r *Registry) Create(key TemplateKey, opts Options) (models.Enemy, error) {
	tpl, ok := Templates[key]
	if !ok {
		return models.Enemy{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("unknown ship type %q", key), map[string]string{"type": string(key)})
	}

	e := models.Enemy{
		ID:        r.newID(),
		Name:      tpl.Name,
		Type:      string(key),
		HP:        models.HP{},
		Morale:    cloneInt(tpl.Morale),
		Armor:     cloneInt(tpl.Armor),
		Weapon:    tpl.Weapon,
		Traits:    append([]string(nil), tpl.Traits...),
		Status:    models.StatusActive,
		Fodder:    tpl.Fodder,
		DR:        tpl.DR,
		CreatedAt: r.now().UnixMilli(),
	}
	if tpl.HP != nil {
		e.HP = models.HP{Current: *tpl.HP, Max: models.IntPtr(*tpl.HP)}
	}
	if opts.Suffix != "" {
		e.Name += " " + opts.Suffix
	}

	if opts.Build != "" {
		if key != HunterFighter {
			return models.Enemy{}, apperrors.New(apperrors.CodeInvalidArgument,
				fmt.Sprintf("builds only apply to fighters, got %q", key))
		}
		b, ok := LookupBuild(opts.Build)
		if !ok {
			return models.Enemy{}, apperrors.New(apperrors.CodeInvalidArgument,
				fmt.Sprintf("unknown fighter build %q", opts.Build))
		}
		e.Build = string(b.Key)
		e.Traits = append(e.Traits, b.Name)
		if b.Armor != nil {
			e.Armor = models.IntPtr(*b.Armor)
		}
		if b.ArmorBonus != 0 {
			base := 0
			if e.Armor != nil {
				base = *e.Armor
			}
			e.Armor = models.IntPtr(base + b.ArmorBonus)
		}
		if b.Weapon != nil {
			e.Weapon = *b.Weapon
		}
	}
	return e, nil
}

// CreateSquad builds count enemies suffixed α, β, γ... in order.
func (r *Registry) CreateSquad(key TemplateKey, count int, opts Options) ([]models.Enemy, error) {
	if count < 1 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("squad size must be positive, got %d", count))
	}
	if count > MaxSquadSize {
		if r.overflow == OverflowError {
			return nil, fmt.Errorf("create squad of %d %s: %w", count, key, ErrSquadTooLarge)
		}
		r.logger.Debugf("squad of %d %s truncated to %d", count, key, MaxSquadSize)
		count = MaxSquadSize
	}
	squad := make([]models.Enemy, 0, count)
	for i := 0; i < count; i++ {
		o := opts
		o.Suffix = GreekLetters[i]
		e, err := r.Create(key, o)
		if err != nil {
			return nil, err
		}
		squad = append(squad, e)
	}
	return squad, nil
}

// RollBuild rolls a d6 on the fighter build table.
func RollBuild(roller *engine.Roller) (Build, error) {
	roll, err := roller.RollDie(len(Builds))
	if err != nil {
		return Build{}, err
	}
	return Builds[roll-1], nil
}

// RandomSpawn picks a weighted random ship type. Fighters come in groups of
// one to three and get a random build half the time.
func (r *Registry) RandomSpawn(roller *engine.Roller) ([]models.Enemy, error) {
	total := 0
	for _, w := range spawnWeights {
		total += w.weight
	}
	pick, err := roller.RollDie(total)
	if err != nil {
		return nil, err
	}
	key := HunterFighter
	for _, w := range spawnWeights {
		if pick <= w.weight {
			key = w.key
			break
		}
		pick -= w.weight
	}

	if key != HunterFighter {
		e, err := r.Create(key, Options{})
		if err != nil {
			return nil, err
		}
		return []models.Enemy{e}, nil
	}

	var opts Options
	coin, err := roller.RollDie(2)
	if err != nil {
		return nil, err
	}
	if coin == 2 {
		b, err := RollBuild(roller)
		if err != nil {
			return nil, err
		}
		opts.Build = b.Key
	}
	count, err := roller.RollDie(3)
	if err != nil {
		return nil, err
	}
	if count == 1 {
		e, err := r.Create(key, opts)
		if err != nil {
			return nil, err
		}
		return []models.Enemy{e}, nil
	}
	return r.CreateSquad(key, count, opts)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
