package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedcap/lendflow/internal/scoring"
)

func healthyFeatures() scoring.FinancialFeatures {
	return scoring.FinancialFeatures{
		AvgMonthlyRevenue: 8000,
		RevenueMonths:     14,
		Volatility:        0.2,
		DebtToIncome:      0.3,
		CreditScore:       720,
	}
}

func TestBusinessRulePolicy_Approve(t *testing.T) {
	p := New(DefaultThresholds())

	rec := p.Decide(Input{
		AuditScore: 70,
		Multiplier: 1.2,
		Features:   healthyFeatures(),
		ImpactRan:  true,
	})

	assert.Equal(t, Approve, rec.Category)
	assert.Equal(t, 84.0, rec.AdjustedScore)
	require.NotNil(t, rec.LoanTerms, "approvals carry loan terms")
	assert.Equal(t, "audit->impact->compliance", rec.Explain.DecisionPath)
	assert.Contains(t, rec.Rationale, "approved")

	for _, c := range rec.Explain.Checks {
		assert.True(t, c.Passed, "check %s should pass for an approval", c.Check)
	}
}

func TestBusinessRulePolicy_DenyLowScore(t *testing.T) {
	p := New(DefaultThresholds())

	rec := p.Decide(Input{
		AuditScore: 35,
		Multiplier: 1.6,
		Features:   healthyFeatures(),
	})

	assert.Equal(t, Deny, rec.Category,
		"the score floor fires on the raw audit score; no multiplier can lift a denial")
	assert.Nil(t, rec.LoanTerms)
	assert.Contains(t, rec.Rationale, "below minimum threshold")

	floorCheck := findCheck(t, rec.Explain.Checks, CheckScoreFloor)
	assert.False(t, floorCheck.Passed)
	assert.Equal(t, 40.0, floorCheck.Threshold)
}

func TestBusinessRulePolicy_DenyRepeatNSF(t *testing.T) {
	p := New(DefaultThresholds())
	f := healthyFeatures()
	f.NSFCount = 2

	rec := p.Decide(Input{AuditScore: 80, Multiplier: 1.0, Features: f})

	assert.Equal(t, Deny, rec.Category)
	nsfCheck := findCheck(t, rec.Explain.Checks, CheckNSFLimit)
	assert.False(t, nsfCheck.Passed)

	// The passing checks are still recorded.
	floorCheck := findCheck(t, rec.Explain.Checks, CheckScoreFloor)
	assert.True(t, floorCheck.Passed)
}

func TestBusinessRulePolicy_DenyHighDebtToIncome(t *testing.T) {
	p := New(DefaultThresholds())
	f := healthyFeatures()
	f.DebtToIncome = 0.65

	rec := p.Decide(Input{AuditScore: 80, Multiplier: 1.0, Features: f})

	assert.Equal(t, Deny, rec.Category)
	dtiCheck := findCheck(t, rec.Explain.Checks, CheckDebtToIncome)
	assert.False(t, dtiCheck.Passed)
}

func TestBusinessRulePolicy_Refer(t *testing.T) {
	p := New(DefaultThresholds())

	rec := p.Decide(Input{
		AuditScore: 60,
		Multiplier: 1.1,
		Features:   healthyFeatures(),
	})

	assert.Equal(t, Refer, rec.Category)
	assert.Equal(t, 66.0, rec.AdjustedScore)
	assert.Nil(t, rec.LoanTerms)
	assert.Contains(t, rec.Rationale, "manual review")

	approveCheck := findCheck(t, rec.Explain.Checks, CheckApproveThreshold)
	assert.False(t, approveCheck.Passed)
}

func TestBusinessRulePolicy_HardRiskFlagBlocksApproval(t *testing.T) {
	p := New(DefaultThresholds())
	f := healthyFeatures()
	f.NSFCount = 1 // below the deny limit

	rec := p.Decide(Input{
		AuditScore: 80,
		Multiplier: 1.1,
		Flags:      []string{scoring.FlagNoRevenueData},
		Features:   f,
	})

	assert.Equal(t, Refer, rec.Category,
		"a hard risk flag downgrades a would-be approval to referral")
	riskCheck := findCheck(t, rec.Explain.Checks, CheckHardRiskFlags)
	assert.False(t, riskCheck.Passed)
}

func TestBusinessRulePolicy_ZeroMultiplierMeansNeutral(t *testing.T) {
	p := New(DefaultThresholds())

	rec := p.Decide(Input{AuditScore: 80, Features: healthyFeatures()})

	assert.Equal(t, 80.0, rec.AdjustedScore)
	assert.Equal(t, 1.0, rec.Explain.CommunityMultiplier)
	assert.Equal(t, "audit->compliance", rec.Explain.DecisionPath)
}

func TestTermsFor(t *testing.T) {
	tests := []struct {
		name       string
		adjusted   float64
		revenue    float64
		wantRate   float64
		wantAmount int
	}{
		{name: "top band", adjusted: 92, revenue: 20000, wantRate: 6.5, wantAmount: 72000},
		{name: "middle band", adjusted: 86, revenue: 20000, wantRate: 7.0, wantAmount: 66000},
		{name: "base band", adjusted: 78, revenue: 20000, wantRate: 7.5, wantAmount: 60000},
		{name: "amount floor", adjusted: 78, revenue: 1000, wantRate: 7.5, wantAmount: 10000},
		{name: "amount ceiling", adjusted: 92, revenue: 90000, wantRate: 6.5, wantAmount: 100000},
		{name: "no revenue defaults", adjusted: 78, revenue: 0, wantRate: 7.5, wantAmount: 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := TermsFor(tt.adjusted, tt.revenue)
			assert.Equal(t, tt.wantRate, terms.InterestRate)
			assert.Equal(t, tt.wantAmount, terms.LoanAmount)
			assert.Equal(t, 36, terms.TermMonths)
			assert.Positive(t, terms.MonthlyPayment)
			assert.Less(t, terms.MonthlyPayment, terms.LoanAmount)
		})
	}
}

func findCheck(t *testing.T, checks []PolicyCheck, name string) PolicyCheck {
	t.Helper()
	for _, c := range checks {
		if c.Check == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return PolicyCheck{}
}
