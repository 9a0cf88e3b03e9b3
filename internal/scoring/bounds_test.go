package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskBands_For(t *testing.T) {
	bands := DefaultRiskBands()

	tests := []struct {
		name     string
		features FinancialFeatures
		want     ScoreBounds
	}{
		{
			name:     "no revenue data",
			features: FinancialFeatures{},
			want:     ScoreBounds{Min: 1, Max: 35},
		},
		{
			name:     "zero revenue months despite revenue figure",
			features: FinancialFeatures{AvgMonthlyRevenue: 5000},
			want:     ScoreBounds{Min: 1, Max: 35},
		},
		{
			name:     "low revenue",
			features: FinancialFeatures{AvgMonthlyRevenue: 800, RevenueMonths: 12},
			want:     ScoreBounds{Min: 20, Max: 50},
		},
		{
			name:     "repeat NSF",
			features: FinancialFeatures{AvgMonthlyRevenue: 5000, RevenueMonths: 12, NSFCount: 2},
			want:     ScoreBounds{Min: 25, Max: 55},
		},
		{
			name:     "very short history",
			features: FinancialFeatures{AvgMonthlyRevenue: 5000, RevenueMonths: 2},
			want:     ScoreBounds{Min: 30, Max: 60},
		},
		{
			name:     "short history",
			features: FinancialFeatures{AvgMonthlyRevenue: 5000, RevenueMonths: 5},
			want:     ScoreBounds{Min: 35, Max: 70},
		},
		{
			name:     "normal",
			features: FinancialFeatures{AvgMonthlyRevenue: 5000, RevenueMonths: 12, CreditScore: 700},
			want:     ScoreBounds{Min: 40, Max: 100},
		},
		{
			name:     "severity order: low revenue beats NSF",
			features: FinancialFeatures{AvgMonthlyRevenue: 500, RevenueMonths: 12, NSFCount: 3},
			want:     ScoreBounds{Min: 20, Max: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bands.For(tt.features))
		})
	}
}

func TestScoreBounds_Clamp(t *testing.T) {
	b := ScoreBounds{Min: 25, Max: 55}

	v, clamped := b.Clamp(40)
	assert.Equal(t, 40.0, v)
	assert.False(t, clamped)

	v, clamped = b.Clamp(10)
	assert.Equal(t, 25.0, v)
	assert.True(t, clamped)

	v, clamped = b.Clamp(90)
	assert.Equal(t, 55.0, v)
	assert.True(t, clamped)
}

func TestScoreBounds_Midpoint(t *testing.T) {
	assert.Equal(t, 40.0, ScoreBounds{Min: 25, Max: 55}.Midpoint())
}
