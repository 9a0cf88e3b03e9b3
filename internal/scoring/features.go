// Package scoring computes audit scores and impact multipliers. Every
// figure is anchored by deterministic rules: rule evaluation fixes hard
// score bounds, and an optional advisory model refines the figure only
// inside those bounds.
package scoring

// FinancialFeatures are the deterministic figures extracted from an
// applicant's bank history. All scoring starts from these.
type FinancialFeatures struct {
	// AvgMonthlyRevenue is the mean inflow across months with revenue.
	AvgMonthlyRevenue float64 `json:"avgMonthlyRevenue"`

	// RevenueMonths counts distinct months with positive inflows.
	RevenueMonths int `json:"revenueMonths"`

	// Volatility is the coefficient of variation of monthly inflows,
	// clamped to [0,1]. 0 is stable, 1 is highly volatile.
	Volatility float64 `json:"volatility"`

	// NSFCount counts non-sufficient-funds and overdraft incidents.
	NSFCount int `json:"nsfCount"`

	// DebtToIncome is the outflow/inflow ratio.
	DebtToIncome float64 `json:"debtToIncome"`

	// CreditScore is the traditional bureau score, 0 if unknown.
	CreditScore int `json:"creditScore"`
}

// Risk flags derived from financial features.
const (
	FlagNoRevenueData       = "no_revenue_data"
	FlagLowRevenue          = "low_revenue"
	FlagInsufficientHistory = "insufficient_revenue_history"
	FlagHighVolatility      = "high_revenue_volatility"
	FlagNSF                 = "nsf_occurrences"
	FlagRepeatNSF           = "multiple_nsf_occurrences"
	FlagHighDebtToIncome    = "high_debt_to_income"
	FlagLowCreditScore      = "low_traditional_credit_score"
)

// Flag cutoffs with no band equivalent. The revenue, history and NSF
// cutoffs live on RiskBands so flags and score bounds cannot disagree
// under a config override.
const (
	highVolatilityCutoff = 0.5
	highDebtToIncomeCeil = 0.5
	lowCreditScoreFloor  = 600
)

// Flags derives the deterministic risk flags for a set of features,
// using the same cutoffs the bands select bounds with. Flags are
// ordered from revenue concerns to credit concerns; the order is stable
// so traces and golden files do not churn.
func (f FinancialFeatures) Flags(b RiskBands) []string {
	var flags []string

	if f.AvgMonthlyRevenue == 0 || f.RevenueMonths == 0 {
		flags = append(flags, FlagNoRevenueData)
	} else if f.AvgMonthlyRevenue < b.LowRevenueFloor {
		flags = append(flags, FlagLowRevenue)
	}
	if f.RevenueMonths > 0 && f.RevenueMonths < b.ShortHistoryMonths {
		flags = append(flags, FlagInsufficientHistory)
	}
	if f.Volatility > highVolatilityCutoff {
		flags = append(flags, FlagHighVolatility)
	}
	if f.NSFCount >= 1 {
		flags = append(flags, FlagNSF)
	}
	if f.NSFCount >= b.RepeatNSFCount {
		flags = append(flags, FlagRepeatNSF)
	}
	if f.DebtToIncome > highDebtToIncomeCeil {
		flags = append(flags, FlagHighDebtToIncome)
	}
	if f.CreditScore > 0 && f.CreditScore < lowCreditScoreFloor {
		flags = append(flags, FlagLowCreditScore)
	}
	return flags
}

// HasHardRiskFlag reports whether the feature set carries a flag the
// approval policy treats as disqualifying on its own.
func HasHardRiskFlag(flags []string) bool {
	for _, fl := range flags {
		switch fl {
		case FlagNoRevenueData, FlagRepeatNSF:
			return true
		}
	}
	return false
}
