package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleBasedScore(t *testing.T) {
	tests := []struct {
		name     string
		features FinancialFeatures
		want     float64
	}{
		{
			// 700/850*60 = 49.41 base, +20 revenue, +8 stability = 77.41 -> 77
			name: "established business",
			features: FinancialFeatures{
				AvgMonthlyRevenue: 8000,
				RevenueMonths:     12,
				Volatility:        0.2,
				CreditScore:       700,
			},
			want: 77,
		},
		{
			// no credit -> flat 30 base, no revenue, zero volatility -> +5
			name:     "empty features",
			features: FinancialFeatures{},
			want:     35,
		},
		{
			// 500/850*60 = 35.29, +5 revenue, +2 stability, -10 NSF, -6 DTI = 26.29 -> 26
			name: "struggling business",
			features: FinancialFeatures{
				AvgMonthlyRevenue: 2000,
				RevenueMonths:     3,
				Volatility:        0.8,
				NSFCount:          3,
				DebtToIncome:      0.6,
				CreditScore:       500,
			},
			want: 26,
		},
		{
			// 850/850*60 = 60, +20 revenue, +10 stability would be 90; vol 0 path gives +5 -> 85
			name: "perfect credit with calm zero volatility",
			features: FinancialFeatures{
				AvgMonthlyRevenue: 20000,
				RevenueMonths:     24,
				Volatility:        0,
				CreditScore:       850,
			},
			want: 85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reasoning := RuleBasedScore(tt.features)
			assert.Equal(t, tt.want, score)
			assert.NotEmpty(t, reasoning)
		})
	}
}

func TestRuleBasedScore_ClampedToScale(t *testing.T) {
	// Maximal penalties cannot push the score below 1.
	score, _ := RuleBasedScore(FinancialFeatures{
		Volatility:   1.0,
		NSFCount:     10,
		DebtToIncome: 2.0,
	})
	assert.GreaterOrEqual(t, score, 1.0)
	assert.LessOrEqual(t, score, 100.0)
}
