package providers

import (
	"math"
	"strings"

	"github.com/seedcap/lendflow/internal/scoring"
)

// Transaction descriptions matching any of these substrings count
// toward the NSF total. Matching is case-insensitive over the name,
// merchant and category fields combined.
var nsfKeywords = []string{
	"nsf", "overdraft", "returned", "insufficient funds",
	"bounced", "non-sufficient", "fee",
}

// ExtractFeatures reduces a bank record to the financial features the
// assessment stages consume. Inflows (negative amounts) are grouped by
// calendar month to derive average monthly revenue and its volatility;
// the debt-to-income value is the crude outflow/inflow ratio, a proxy
// rather than a true DTI.
func ExtractFeatures(rec BankRecord) scoring.FinancialFeatures {
	f := scoring.FinancialFeatures{CreditScore: rec.CreditScore}

	if len(rec.Transactions) == 0 {
		// No history at all reads as maximally volatile.
		f.Volatility = 1.0
		return f
	}

	monthly := make(map[string]float64)
	var totalIn, totalOut float64

	for _, txn := range rec.Transactions {
		switch {
		case txn.Amount < 0:
			in := -txn.Amount
			totalIn += in
			if key, ok := monthKey(txn.Date); ok {
				monthly[key] += in
			}
		case txn.Amount > 0:
			totalOut += txn.Amount
		}

		desc := strings.ToLower(txn.Name + " " + txn.Merchant + " " + txn.Category)
		for _, kw := range nsfKeywords {
			if strings.Contains(desc, kw) {
				f.NSFCount++
				break
			}
		}
	}

	var totalRevenue float64
	for _, v := range monthly {
		totalRevenue += v
		if v > 0 {
			f.RevenueMonths++
		}
	}
	if len(monthly) > 0 {
		f.AvgMonthlyRevenue = round2(totalRevenue / float64(max(1, f.RevenueMonths)))
	}

	f.Volatility = round3(monthlyVolatility(monthly))

	if totalIn > 0 {
		f.DebtToIncome = round3(totalOut / totalIn)
	}
	return f
}

// monthlyVolatility is the coefficient of variation of monthly inflows
// clamped to [0, 1]. A single observed month is treated as perfectly
// stable, no months as worst case.
func monthlyVolatility(monthly map[string]float64) float64 {
	switch {
	case len(monthly) == 0:
		return 1.0
	case len(monthly) == 1:
		return 0.0
	}

	var total float64
	for _, v := range monthly {
		total += v
	}
	mean := total / float64(len(monthly))
	if mean <= 0 {
		return 1.0
	}

	var sumSq float64
	for _, v := range monthly {
		d := v - mean
		sumSq += d * d
	}
	// Sample standard deviation over the observed months.
	stdev := math.Sqrt(sumSq / float64(len(monthly)-1))

	cv := stdev / mean
	return math.Min(1.0, math.Max(0.0, cv))
}

// monthKey extracts the YYYY-MM prefix of a YYYY-MM-DD date string.
func monthKey(date string) (string, bool) {
	if len(date) < 7 || date[4] != '-' {
		return "", false
	}
	return date[:7], true
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
