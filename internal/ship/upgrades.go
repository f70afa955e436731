// Package ship answers the combat engine's questions about the party ship:
// which upgrades are installed, how far shields go, what the gunners roll
// and which torpedoes are in the hold.
package ship

import (
	"fmt"
	"sort"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// HasUpgrade reports whether the upgrade is installed, heroic or purchased.
func HasUpgrade(s *models.Ship, id models.UpgradeID) bool {
	if s == nil {
		return false
	}
	for _, u := range s.HeroicUpgrades {
		if u == id {
			return true
		}
	}
	for _, u := range s.PurchasedUpgrades {
		if u == id {
			return true
		}
	}
	return false
}

// MaxArmorTier is 3 with overcharged shields, otherwise 2.
func MaxArmorTier(s *models.Ship) int {
	if HasUpgrade(s, models.UpgradeOverchargeShields) {
		return 3
	}
	return 2
}

// GunnerDamageDie returns the damage pattern for the station's laser turret.
func GunnerDamageDie(s *models.Ship, station models.StationID) string {
	if HasUpgrade(s, models.UpgradeTurboLasers) && s.TurboLaserStation == station {
		return "1d8"
	}
	return "1d6"
}

// SteadyTargetCount is "1", or "D2" with booster rockets.
func SteadyTargetCount(s *models.Ship) string {
	if HasUpgrade(s, models.UpgradeBoosterRockets) {
		return "D2"
	}
	return "1"
}

// AnyStationCanLoadTorpedoes reports whether the torpedo winch is installed.
func AnyStationCanLoadTorpedoes(s *models.Ship) bool {
	return HasUpgrade(s, models.UpgradeTorpedoWinch)
}

// AllUpgrades lists heroic then purchased upgrades.
func AllUpgrades(s *models.Ship) []models.UpgradeID {
	if s == nil {
		return nil
	}
	out := make([]models.UpgradeID, 0, len(s.HeroicUpgrades)+len(s.PurchasedUpgrades))
	out = append(out, s.HeroicUpgrades...)
	return append(out, s.PurchasedUpgrades...)
}

// CanEarnHeroicUpgrade reports whether saved galaxies exceed heroic upgrades.
func CanEarnHeroicUpgrade(s *models.Ship) bool {
	return AvailableHeroicSlots(s) > 0
}

// AvailableHeroicSlots is galaxies saved minus heroic upgrades, floored at 0.
func AvailableHeroicSlots(s *models.Ship) int {
	if s == nil {
		return 0
	}
	n := s.GalaxiesSaved - len(s.HeroicUpgrades)
	if n < 0 {
		return 0
	}
	return n
}

// ========================= Torpedoes =========================

// Torpedo describes a torpedo type from the ship shop.
type Torpedo struct {
	Type       models.TorpedoType `json:"type"`
	Name       string             `json:"name"`
	Damage     string             `json:"damage,omitempty"`
	Effect     string             `json:"effect"`
	Cost       int                `json:"cost"`
	Advantage  bool               `json:"advantage,omitempty"`
	ArmorBreak bool               `json:"armorBreak,omitempty"`
	MaxTargets int                `json:"maxTargets"`
	Defensive  bool               `json:"defensive,omitempty"`
}

// Torpedoes is the torpedo catalogue.
var Torpedoes = map[models.TorpedoType]Torpedo{
	models.TorpedoStandard: {
		Type: models.TorpedoStandard, Name: "Standard Particle Torpedo", Damage: "1d8",
		Effect: "Deal D8 damage on hit", MaxTargets: 1,
	},
	models.TorpedoCluster: {
		Type: models.TorpedoCluster, Name: "Cluster Torpedo", Damage: "1d4", Cost: 2,
		Effect: "Hit up to 3 different targets with D4 damage each", MaxTargets: 3,
	},
	models.TorpedoHunterKiller: {
		Type: models.TorpedoHunterKiller, Name: "Hunter-Killer Torpedo", Damage: "1d8", Cost: 2,
		Effect: "Roll with advantage for both hit and damage", Advantage: true, MaxTargets: 1,
	},
	models.TorpedoChaff: {
		Type: models.TorpedoChaff, Name: "Chaff Torpedo", Cost: 1,
		Effect: "Defensive screen - advantage on defense, disadvantage on attacks", Defensive: true,
	},
	models.TorpedoIon: {
		Type: models.TorpedoIon, Name: "Ion Torpedo", Damage: "1d8", Cost: 2,
		Effect: "D8 damage + permanently reduces enemy armor by 1 tier", ArmorBreak: true, MaxTargets: 1,
	},
}

// TorpedoStock is one inventory line.
type TorpedoStock struct {
	Type  models.TorpedoType `json:"type"`
	Count int                `json:"count"`
}

// AvailableTorpedoes lists the torpedo types in stock, sorted by type.
func AvailableTorpedoes(s *models.Ship) []TorpedoStock {
	if s == nil {
		return nil
	}
	var out []TorpedoStock
	for t, n := range s.TorpedoInventory {
		if n > 0 {
			out = append(out, TorpedoStock{Type: t, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// TotalTorpedoes sums the inventory.
func TotalTorpedoes(s *models.Ship) int {
	if s == nil {
		return 0
	}
	total := 0
	for _, n := range s.TorpedoInventory {
		total += n
	}
	return total
}

// HasTorpedoType reports whether at least one torpedo of type t is in stock.
func HasTorpedoType(s *models.Ship, t models.TorpedoType) bool {
	return s != nil && s.TorpedoInventory[t] > 0
}

// ConsumeTorpedo removes one torpedo of type t from the inventory.
func ConsumeTorpedo(s *models.Ship, t models.TorpedoType) error {
	if _, ok := Torpedoes[t]; !ok {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown torpedo type %q", t))
	}
	if !HasTorpedoType(s, t) {
		return apperrors.WithMetadata(apperrors.CodeInvalidOperation,
			fmt.Sprintf("no %s torpedoes in stock", t), map[string]string{"torpedo": string(t)})
	}
	s.TorpedoInventory[t]--
	return nil
}
