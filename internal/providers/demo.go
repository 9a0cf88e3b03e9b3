package providers

import "fmt"

// Demo applicant IDs recognized by DemoBank.
const (
	DemoSteadyGrocer = "steady-grocer"
	DemoFragileCafe  = "fragile-cafe"
)

// DemoBank returns a bank provider preloaded with two contrasting
// applicants: a grocery store with a year of stable deposits, and a
// cafe with thin, erratic history and repeat NSF activity.
func DemoBank() *StaticBank {
	return NewStaticBank(map[string]BankRecord{
		DemoSteadyGrocer: {
			CreditScore:  705,
			Transactions: steadyGrocerHistory(),
		},
		DemoFragileCafe: {
			CreditScore:  560,
			Transactions: fragileCafeHistory(),
		},
	})
}

// DemoCommunity returns a community provider with a handful of zip
// codes spanning the metric range, from an underserved corridor to a
// well-served downtown block.
func DemoCommunity() *StaticCommunity {
	return NewStaticCommunity(map[string]CommunityMetrics{
		"60619": { // underserved south-side corridor
			LowIncomeArea:        true,
			FoodDesert:           true,
			LocalHiringRate:      0.7,
			NearestGroceryMiles:  6.2,
			NearestPharmacyMiles: 5.4,
		},
		"60617": {
			LowIncomeArea:        true,
			FoodDesert:           false,
			LocalHiringRate:      0.55,
			NearestGroceryMiles:  2.1,
			NearestPharmacyMiles: 1.6,
		},
		"60601": { // downtown, well served
			LowIncomeArea:        false,
			FoodDesert:           false,
			LocalHiringRate:      0.3,
			NearestGroceryMiles:  0.4,
			NearestPharmacyMiles: 0.2,
		},
	})
}

func steadyGrocerHistory() []Transaction {
	var txns []Transaction
	for m := 1; m <= 12; m++ {
		date := func(day int) string { return fmt.Sprintf("2025-%02d-%02d", m, day) }
		txns = append(txns,
			Transaction{Date: date(3), Amount: -4200, Name: "Card settlement batch"},
			Transaction{Date: date(17), Amount: -4100, Name: "Card settlement batch"},
			Transaction{Date: date(1), Amount: 2400, Name: "Rent - Commercial Lease"},
			Transaction{Date: date(5), Amount: 1200, Name: "Wholesale produce order"},
			Transaction{Date: date(20), Amount: 520, Name: "Payroll - part time staff"},
		)
	}
	return txns
}

func fragileCafeHistory() []Transaction {
	var txns []Transaction
	// Four months of uneven deposits with mounting fees.
	deposits := []float64{-2100, -900, -3400, -600}
	for i, amt := range deposits {
		m := 9 + i
		date := func(day int) string { return fmt.Sprintf("2025-%02d-%02d", m, day) }
		txns = append(txns,
			Transaction{Date: date(4), Amount: amt, Name: "Card settlement batch"},
			Transaction{Date: date(1), Amount: 1600, Name: "Rent - Commercial Lease"},
			Transaction{Date: date(12), Amount: 780, Name: "Supplier invoice"},
		)
	}
	txns = append(txns,
		Transaction{Date: "2025-10-15", Amount: 35, Name: "NSF FEE - Returned payment"},
		Transaction{Date: "2025-11-02", Amount: 35, Name: "Overdraft fee"},
		Transaction{Date: "2025-12-09", Amount: 35, Name: "NSF FEE - Returned payment"},
	)
	return txns
}
