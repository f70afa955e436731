package ship

import (
	"testing"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

func TestMaxArmorTier(t *testing.T) {
	if got := MaxArmorTier(nil); got != 2 {
		t.Fatalf("expected 2 without a ship, got %d", got)
	}
	s := &models.Ship{HeroicUpgrades: []models.UpgradeID{models.UpgradeOverchargeShields}}
	if got := MaxArmorTier(s); got != 3 {
		t.Fatalf("expected 3 with overcharged shields, got %d", got)
	}
}

func TestGunnerDamageDie(t *testing.T) {
	s := &models.Ship{
		PurchasedUpgrades: []models.UpgradeID{models.UpgradeTurboLasers},
		TurboLaserStation: models.StationGunner2,
	}
	if got := GunnerDamageDie(s, models.StationGunner2); got != "1d8" {
		t.Fatalf("expected 1d8, got %s", got)
	}
	if got := GunnerDamageDie(s, models.StationGunner1); got != "1d6" {
		t.Fatalf("expected 1d6 on the other turret, got %s", got)
	}
	if got := GunnerDamageDie(nil, models.StationGunner1); got != "1d6" {
		t.Fatalf("expected 1d6 without a ship, got %s", got)
	}
}

func TestUpgradeQueries(t *testing.T) {
	s := &models.Ship{
		HeroicUpgrades:    []models.UpgradeID{models.UpgradeBoosterRockets},
		PurchasedUpgrades: []models.UpgradeID{models.UpgradeTorpedoWinch},
		GalaxiesSaved:     3,
	}
	if SteadyTargetCount(s) != "D2" || SteadyTargetCount(nil) != "1" {
		t.Fatal("steady target count wrong")
	}
	if !AnyStationCanLoadTorpedoes(s) {
		t.Fatal("winch should let any station load")
	}
	if got := AllUpgrades(s); len(got) != 2 || got[0] != models.UpgradeBoosterRockets {
		t.Fatalf("unexpected upgrades %v", got)
	}
	if AvailableHeroicSlots(s) != 2 || !CanEarnHeroicUpgrade(s) {
		t.Fatalf("expected 2 heroic slots, got %d", AvailableHeroicSlots(s))
	}
	s.GalaxiesSaved = 0
	if AvailableHeroicSlots(s) != 0 || CanEarnHeroicUpgrade(s) {
		t.Fatal("slots must floor at zero")
	}
}

func TestTorpedoInventory(t *testing.T) {
	s := &models.Ship{TorpedoInventory: map[models.TorpedoType]int{
		models.TorpedoStandard: 2,
		models.TorpedoIon:      1,
		models.TorpedoChaff:    0,
	}}
	if TotalTorpedoes(s) != 3 {
		t.Fatalf("expected 3 torpedoes, got %d", TotalTorpedoes(s))
	}
	avail := AvailableTorpedoes(s)
	if len(avail) != 2 || avail[0].Type != models.TorpedoIon {
		t.Fatalf("unexpected stock %v", avail)
	}

	if err := ConsumeTorpedo(s, models.TorpedoIon); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if HasTorpedoType(s, models.TorpedoIon) {
		t.Fatal("ion torpedo should be used up")
	}
	if err := ConsumeTorpedo(s, models.TorpedoIon); !apperrors.HasCode(err, apperrors.CodeInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	if err := ConsumeTorpedo(s, "photon"); !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
