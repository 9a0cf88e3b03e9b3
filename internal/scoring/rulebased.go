package scoring

import (
	"fmt"
	"math"
)

// RuleBasedScore computes the deterministic audit score on the 1-100
// scale, with a reasoning string suitable for the trace.
//
// Weighting: up to 60 points from the traditional credit score (a flat
// 30 when no bureau score is known), up to 20 from revenue history
// depth, up to 10 from revenue stability, minus penalties for NSF
// incidents and elevated debt-to-income.
func RuleBasedScore(f FinancialFeatures) (float64, string) {
	base := 30.0
	if f.CreditScore > 0 {
		base = float64(f.CreditScore) / 850 * 60
	}

	revenue := 0.0
	if f.RevenueMonths > 0 {
		revenue = math.Min(20, float64(f.RevenueMonths)/12*20)
	}

	stability := 5.0
	if f.Volatility > 0 {
		stability = math.Max(0, 10-f.Volatility*10)
	}

	nsfPenalty := math.Min(10, float64(f.NSFCount)*5)

	dtiPenalty := 0.0
	if f.DebtToIncome > 0.3 {
		dtiPenalty = math.Min(10, (f.DebtToIncome-0.3)*20)
	}

	score := math.Trunc(base + revenue + stability - nsfPenalty - dtiPenalty)
	score = math.Max(1, math.Min(100, score))

	reasoning := fmt.Sprintf(
		"Rule-based score %.0f/100: credit score %d, %d months of revenue history, volatility %.2f, %d NSF incidents, debt-to-income %.2f.",
		score, f.CreditScore, f.RevenueMonths, f.Volatility, f.NSFCount, f.DebtToIncome,
	)
	return score, reasoning
}
