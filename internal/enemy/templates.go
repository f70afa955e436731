// Package enemy builds enemy ships from a closed template table and runs
// their lifecycle: active units may flee, surrender or be destroyed, and a
// destroyed unit only comes back through a manual HP increase.
package enemy

import "github.com/danroth-nyt/star-dashborg-sub001/internal/models"

// TemplateKey selects an enemy ship template.
type TemplateKey string

const (
	HunterFighter  TemplateKey = "hunterFighter"
	PredatorLeader TemplateKey = "predatorLeader"
	Dreadnought    TemplateKey = "dreadnought"
	PirateMarauder TemplateKey = "pirateMarauder"
)

// Template is the stat block an enemy is created from. A nil HP marks an
// impervious ship; a nil Morale marks a ship that never breaks.
type Template struct {
	Key           TemplateKey
	Name          string
	HP            *int
	Morale        *int
	MoraleBoosted *int // squadthink threshold with 4+ active units
	Armor         *int
	Weapon        models.Weapon
	Hyperdrive    bool
	Traits        []string
	Description   string
	Special       string
	Fodder        bool
	DR            int
}

// Templates is the closed template table.
var Templates = map[TemplateKey]Template{
	HunterFighter: {
		Key:           HunterFighter,
		Name:          "Hunter Fighter",
		HP:            models.IntPtr(6),
		Morale:        models.IntPtr(7),
		MoraleBoosted: models.IntPtr(8),
		Armor:         models.IntPtr(0),
		Weapon:        models.Weapon{Name: "Turbo Laser", Damage: "1d6", DiceCount: 1, DiceSides: 6},
		Traits:        []string{"Mass Produced", "Squadthink"},
		Description:   "Mass-produced Legion fighters. A single hit destroys them.",
		Fodder:        true,
		DR:            12,
	},
	PredatorLeader: {
		Key:         PredatorLeader,
		Name:        "Predator Leader",
		HP:          models.IntPtr(12),
		Morale:      models.IntPtr(10),
		Armor:       models.IntPtr(2),
		Weapon:      models.Weapon{Name: "Particle Beam", Damage: "1d8", DiceCount: 1, DiceSides: 8},
		Hyperdrive:  true,
		Traits:      []string{"Elite"},
		Description: "Elite Legion command ship. DR14 to defend against.",
		DR:          14,
	},
	Dreadnought: {
		Key:         Dreadnought,
		Name:        "Dreadnought Carrier",
		Weapon:      models.Weapon{Name: "Turbo Cannon Batteries", Damage: "1d10", DiceCount: 1, DiceSides: 10},
		Hyperdrive:  true,
		Traits:      []string{"Impervious", "Heartless"},
		Description: "Massive carrier. Cannot be destroyed by fighters - plot device ship.",
		Special:     "Rebels can stay out of range for 1 round with DR12 AGI test instead of taking action.",
		DR:          12,
	},
	PirateMarauder: {
		Key:         PirateMarauder,
		Name:        "Pirate Marauder",
		HP:          models.IntPtr(12),
		Morale:      models.IntPtr(7),
		Armor:       models.IntPtr(1),
		Weapon:      models.Weapon{Name: "Twin Turbo Turrets", Damage: "1d8", DiceCount: 1, DiceSides: 8, Advantage: true},
		Hyperdrive:  true,
		Traits:      []string{"Communications Disruption", "Boarding Airlock"},
		Description: "Pirate raider with jamming and boarding capabilities.",
		Special:     "Jamming prevents outgoing comms. Boarding in D2+1 rounds.",
		DR:          12,
	},
}

// BuildKey selects a fighter build variation.
type BuildKey string

const (
	SleekInterceptor BuildKey = "sleekInterceptor"
	BulkyInterdictor BuildKey = "bulkyInterdictor"
	FlyingWing       BuildKey = "flyingWing"
	TwinSeatBomber   BuildKey = "twinSeatBomber"
	ReconBotSaucer   BuildKey = "reconBotSaucer"
	ArmorPlatedHull  BuildKey = "armorPlatedHull"
)

// Build modifies a fighter. Armor replaces the template armor, ArmorBonus
// adds to it and Weapon replaces the template weapon.
type Build struct {
	Key         BuildKey
	Name        string
	Roll        int
	Effect      string
	Armor       *int
	ArmorBonus  int
	Weapon      *models.Weapon
	Initiative  bool
	TractorBeam bool
	Evasion     int
	// bomber specials
	AttackEveryOther    bool
	ExplodesOnDeath     bool
	CallsReinforcements bool
}

// Builds is indexed by d6 roll minus one.
var Builds = [6]Build{
	{Key: SleekInterceptor, Name: "Sleek Interceptor", Roll: 1, Initiative: true,
		Effect: "Goes first in combat (test PRS DR12 or interceptor acts first)"},
	{Key: BulkyInterdictor, Name: "Bulky Interdictor", Roll: 2, Armor: models.IntPtr(2), TractorBeam: true,
		Effect: "Tractor beam prevents hyperspace jumps. Tier 2 armor."},
	{Key: FlyingWing, Name: "Flying Wing", Roll: 3, Evasion: 2,
		Effect: "Disadvantage to hit for first 2 rounds of combat."},
	{Key: TwinSeatBomber, Name: "Twin-Seat Bomber", Roll: 4,
		Weapon:           &models.Weapon{Name: "Particle Bomb", Damage: "1d10", DiceCount: 1, DiceSides: 10},
		AttackEveryOther: true, ExplodesOnDeath: true,
		Effect: "Attacks every other round with D10 bomb. Explodes on death."},
	{Key: ReconBotSaucer, Name: "Recon Bot Saucer", Roll: 5,
		Weapon:              &models.Weapon{Name: "Beam Gun", Damage: "1d4", DiceCount: 1, DiceSides: 4},
		CallsReinforcements: true,
		Effect:              "Calls reinforcements from carrier in D4 rounds."},
	{Key: ArmorPlatedHull, Name: "Armor-Plated Hull", Roll: 6, ArmorBonus: 1,
		Effect: "Increase armor tier by 1."},
}

// LookupBuild returns the build for key.
func LookupBuild(key BuildKey) (Build, bool) {
	for _, b := range Builds {
		if b.Key == key {
			return b, true
		}
	}
	return Build{}, false
}

// GreekLetters suffix the members of a squad, in order.
var GreekLetters = []string{"α", "β", "γ", "δ", "ε", "ζ", "η", "θ", "ι", "κ"}

// MaxSquadSize is the largest squad that gets distinct suffixes.
var MaxSquadSize = len(GreekLetters)

// spawnWeights drive RandomSpawn; they sum to 100.
var spawnWeights = []struct {
	key    TemplateKey
	weight int
}{
	{HunterFighter, 50},
	{PredatorLeader, 25},
	{PirateMarauder, 20},
	{Dreadnought, 5},
}
