package scoring

import "fmt"

// ScoreBounds is a hard score range fixed by deterministic risk rules.
// No advisory refinement may leave it.
type ScoreBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp forces v into the bounds and reports whether clamping happened.
func (b ScoreBounds) Clamp(v float64) (float64, bool) {
	if v < b.Min {
		return b.Min, true
	}
	if v > b.Max {
		return b.Max, true
	}
	return v, false
}

// Midpoint returns the center of the range.
func (b ScoreBounds) Midpoint() float64 {
	return (b.Min + b.Max) / 2
}

// String renders the bounds as "min-max" for traces and reasoning text.
func (b ScoreBounds) String() string {
	return fmt.Sprintf("%g-%g", b.Min, b.Max)
}

// RiskBands maps deterministic risk tiers to score bounds. The first
// matching tier wins, checked from most to least severe.
type RiskBands struct {
	NoRevenueData    ScoreBounds `json:"noRevenueData"`
	LowRevenue       ScoreBounds `json:"lowRevenue"`
	RepeatNSF        ScoreBounds `json:"repeatNsf"`
	VeryShortHistory ScoreBounds `json:"veryShortHistory"`
	ShortHistory     ScoreBounds `json:"shortHistory"`
	Normal           ScoreBounds `json:"normal"`

	// LowRevenueFloor is the monthly revenue below which the LowRevenue
	// band applies.
	LowRevenueFloor float64 `json:"lowRevenueFloor"`

	// RepeatNSFCount is the NSF incident count at which the RepeatNSF
	// band applies.
	RepeatNSFCount int `json:"repeatNsfCount"`

	// VeryShortHistoryMonths / ShortHistoryMonths are the exclusive
	// upper limits of the two history bands.
	VeryShortHistoryMonths int `json:"veryShortHistoryMonths"`
	ShortHistoryMonths     int `json:"shortHistoryMonths"`
}

// DefaultRiskBands returns the standard underwriting bands.
func DefaultRiskBands() RiskBands {
	return RiskBands{
		NoRevenueData:    ScoreBounds{Min: 1, Max: 35},
		LowRevenue:       ScoreBounds{Min: 20, Max: 50},
		RepeatNSF:        ScoreBounds{Min: 25, Max: 55},
		VeryShortHistory: ScoreBounds{Min: 30, Max: 60},
		ShortHistory:     ScoreBounds{Min: 35, Max: 70},
		Normal:           ScoreBounds{Min: 40, Max: 100},

		LowRevenueFloor:        1000,
		RepeatNSFCount:         2,
		VeryShortHistoryMonths: 3,
		ShortHistoryMonths:     6,
	}
}

// For selects the bounds for a feature set. One band always matches.
func (b RiskBands) For(f FinancialFeatures) ScoreBounds {
	switch {
	case f.AvgMonthlyRevenue == 0 || f.RevenueMonths == 0:
		return b.NoRevenueData
	case f.AvgMonthlyRevenue < b.LowRevenueFloor:
		return b.LowRevenue
	case f.NSFCount >= b.RepeatNSFCount:
		return b.RepeatNSF
	case f.RevenueMonths < b.VeryShortHistoryMonths:
		return b.VeryShortHistory
	case f.RevenueMonths < b.ShortHistoryMonths:
		return b.ShortHistory
	default:
		return b.Normal
	}
}
