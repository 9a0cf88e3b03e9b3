package policy

import "math"

// LoanTerms are offered with every approval. Better adjusted scores earn
// lower rates and a higher amount multiple.
type LoanTerms struct {
	LoanAmount     int     `json:"loanAmount"`
	InterestRate   float64 `json:"interestRate"`
	TermMonths     int     `json:"termMonths"`
	MonthlyPayment int     `json:"monthlyPayment"`
}

// Loan sizing limits. The amount is pegged to three months of revenue,
// scaled by the score band, and kept inside these rails.
const (
	minLoanAmount     = 10_000
	maxLoanAmount     = 100_000
	defaultLoanAmount = 50_000
	termMonths        = 36
)

// TermsFor derives loan terms from the adjusted score and average
// monthly revenue. Only called for approvals.
func TermsFor(adjustedScore, avgMonthlyRevenue float64) *LoanTerms {
	var rate, amountMult float64
	switch {
	case adjustedScore >= 90:
		rate, amountMult = 6.5, 1.2
	case adjustedScore >= 85:
		rate, amountMult = 7.0, 1.1
	default:
		rate, amountMult = 7.5, 1.0
	}

	amount := float64(defaultLoanAmount)
	if avgMonthlyRevenue > 0 {
		amount = math.Max(minLoanAmount, math.Min(maxLoanAmount, avgMonthlyRevenue*3*amountMult))
	}

	return &LoanTerms{
		LoanAmount:     int(amount),
		InterestRate:   rate,
		TermMonths:     termMonths,
		MonthlyPayment: amortizedPayment(amount, rate, termMonths),
	}
}

// amortizedPayment computes the standard fixed monthly payment for an
// annual percentage rate over n months.
func amortizedPayment(principal, annualRate float64, months int) int {
	monthly := annualRate / 100 / 12
	if monthly == 0 {
		return int(principal / float64(months))
	}
	factor := math.Pow(1+monthly, float64(months))
	return int(principal * monthly * factor / (factor - 1))
}
