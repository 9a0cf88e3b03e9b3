package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFeatures_EmptyRecord(t *testing.T) {
	f := ExtractFeatures(BankRecord{})

	assert.Zero(t, f.AvgMonthlyRevenue)
	assert.Zero(t, f.RevenueMonths)
	assert.Equal(t, 1.0, f.Volatility, "no history should read as worst-case volatility")
	assert.Zero(t, f.NSFCount)
	assert.Zero(t, f.DebtToIncome)
}

func TestExtractFeatures_SingleMonth(t *testing.T) {
	f := ExtractFeatures(BankRecord{
		CreditScore: 680,
		Transactions: []Transaction{
			{Date: "2025-01-05", Amount: -1000, Name: "Card settlement"},
			{Date: "2025-01-20", Amount: -500, Name: "Card settlement"},
			{Date: "2025-01-10", Amount: 600, Name: "Rent"},
		},
	})

	assert.Equal(t, 1500.0, f.AvgMonthlyRevenue)
	assert.Equal(t, 1, f.RevenueMonths)
	assert.Zero(t, f.Volatility, "one observed month is treated as stable")
	assert.Equal(t, 0.4, f.DebtToIncome)
	assert.Equal(t, 680, f.CreditScore)
}

func TestExtractFeatures_VolatilityAcrossMonths(t *testing.T) {
	f := ExtractFeatures(BankRecord{
		Transactions: []Transaction{
			{Date: "2025-01-05", Amount: -2000, Name: "Deposit"},
			{Date: "2025-02-05", Amount: -1000, Name: "Deposit"},
		},
	})

	assert.Equal(t, 2, f.RevenueMonths)
	assert.Equal(t, 1500.0, f.AvgMonthlyRevenue)
	// Sample stdev of {2000, 1000} is ~707.1, so cv ~0.471.
	assert.Equal(t, 0.471, f.Volatility)
}

func TestExtractFeatures_NSFKeywords(t *testing.T) {
	f := ExtractFeatures(BankRecord{
		Transactions: []Transaction{
			{Date: "2025-03-01", Amount: 35, Name: "NSF FEE - Returned payment"},
			{Date: "2025-03-02", Amount: 35, Name: "Overdraft charge"},
			{Date: "2025-03-03", Amount: 9, Name: "ATM Fee"},
			{Date: "2025-03-04", Amount: 12, Name: "Coffee", Category: "insufficient funds recovery"},
			{Date: "2025-03-05", Amount: 50, Name: "Groceries"},
		},
	})

	assert.Equal(t, 4, f.NSFCount)
}

func TestExtractFeatures_NoInflows(t *testing.T) {
	f := ExtractFeatures(BankRecord{
		Transactions: []Transaction{
			{Date: "2025-04-01", Amount: 300, Name: "Rent"},
		},
	})

	assert.Zero(t, f.AvgMonthlyRevenue)
	assert.Zero(t, f.RevenueMonths)
	assert.Equal(t, 1.0, f.Volatility)
	assert.Zero(t, f.DebtToIncome, "ratio is zero when there is nothing to divide by")
}

func TestExtractFeatures_MalformedDateSkipsGrouping(t *testing.T) {
	f := ExtractFeatures(BankRecord{
		Transactions: []Transaction{
			{Date: "junk", Amount: -900, Name: "Deposit"},
			{Date: "2025-05-02", Amount: 300, Name: "Rent"},
		},
	})

	// The inflow still counts toward the outflow/inflow ratio even
	// though it cannot be assigned to a month.
	assert.Zero(t, f.RevenueMonths)
	assert.Zero(t, f.AvgMonthlyRevenue)
	assert.InDelta(t, 0.333, f.DebtToIncome, 0.001)
}
