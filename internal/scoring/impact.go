package scoring

import (
	"math"
	"strings"
)

// Community multiplier limits. A neutral business multiplies the audit
// score by 1.0; the strongest community profile reaches 1.6.
const (
	MultiplierFloor = 1.0
	MultiplierCeil  = 1.6
)

// Advisory band half-widths around the deterministic base multiplier.
const (
	multiplierBandDown = 0.10
	multiplierBandUp   = 0.15
)

// CommunityProfile describes where and how a business operates, combined
// from the applicant's profile and the community-data lookup.
type CommunityProfile struct {
	BusinessType           string  `json:"businessType"`
	NearestCompetitorMiles float64 `json:"nearestCompetitorMiles"`
	HiresLocally           bool    `json:"hiresLocally"`

	LowIncomeArea        bool    `json:"lowIncomeArea"`
	FoodDesert           bool    `json:"foodDesert"`
	LocalHiringRate      float64 `json:"localHiringRate"`
	NearestGroceryMiles  float64 `json:"nearestGroceryMiles"`
	NearestPharmacyMiles float64 `json:"nearestPharmacyMiles"`
}

// Impact factor identifiers, recorded so the decision can explain which
// community characteristics moved the multiplier.
const (
	FactorLowIncomeArea    = "low_income_area"
	FactorFoodDesert       = "food_desert"
	FactorGroceryGap       = "grocery_access_gap"
	FactorPharmacyGap      = "pharmacy_access_gap"
	FactorHighLocalHiring  = "high_local_hiring_rate"
	FactorHiresLocally     = "hires_locally"
	FactorLowCompetition   = "low_competition"
	FactorSomeCompetition  = "moderate_competition"
	FactorCommunityFocused = "community_focused_type"
)

var groceryTypes = []string{"grocery", "supermarket", "food", "market", "retail"}
var pharmacyTypes = []string{"pharmacy", "drugstore", "health"}
var communityTypes = []string{"nonprofit", "cooperative", "social_enterprise", "community_center", "food_bank"}

// ImpactBase computes the deterministic community multiplier and the
// factors that contributed to it. The result is clamped to the
// [MultiplierFloor, MultiplierCeil] range and rounded to two decimals.
func ImpactBase(p CommunityProfile) (float64, []string) {
	multiplier := MultiplierFloor
	var factors []string

	if p.LowIncomeArea {
		multiplier += 0.20
		factors = append(factors, FactorLowIncomeArea)
	}
	if p.FoodDesert {
		multiplier += 0.20
		factors = append(factors, FactorFoodDesert)
	}
	if typeMatches(p.BusinessType, groceryTypes) && p.NearestGroceryMiles >= 5 {
		multiplier += 0.10
		factors = append(factors, FactorGroceryGap)
	}
	if typeMatches(p.BusinessType, pharmacyTypes) && p.NearestPharmacyMiles >= 5 {
		multiplier += 0.10
		factors = append(factors, FactorPharmacyGap)
	}
	if p.LocalHiringRate >= 0.6 {
		multiplier += 0.05
		factors = append(factors, FactorHighLocalHiring)
	}
	if p.HiresLocally {
		multiplier += 0.15
		factors = append(factors, FactorHiresLocally)
	}

	switch {
	case p.NearestCompetitorMiles > 10:
		multiplier += 0.15
		factors = append(factors, FactorLowCompetition)
	case p.NearestCompetitorMiles > 5:
		multiplier += 0.10
		factors = append(factors, FactorSomeCompetition)
	case p.NearestCompetitorMiles > 2:
		multiplier += 0.05
	}

	if typeEquals(p.BusinessType, communityTypes) {
		multiplier += 0.10
		factors = append(factors, FactorCommunityFocused)
	}

	multiplier = math.Max(MultiplierFloor, math.Min(MultiplierCeil, multiplier))
	return round2(multiplier), factors
}

// ImpactBounds derives the advisory band around a deterministic base
// multiplier, clamped into the global multiplier range.
func ImpactBounds(base float64) ScoreBounds {
	return ScoreBounds{
		Min: round2(math.Max(MultiplierFloor, base-multiplierBandDown)),
		Max: round2(math.Min(MultiplierCeil, base+multiplierBandUp)),
	}
}

func typeMatches(businessType string, candidates []string) bool {
	lower := strings.ToLower(businessType)
	for _, c := range candidates {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func typeEquals(businessType string, candidates []string) bool {
	lower := strings.ToLower(businessType)
	for _, c := range candidates {
		if lower == c {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
