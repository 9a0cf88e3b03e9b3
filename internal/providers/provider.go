// Package providers supplies applicant bank history and neighborhood
// metrics to the assessment pipeline. The static implementations are
// deterministic lookups suitable for demos and tests; a production
// deployment would back the same interfaces with an aggregator API and
// a geographic dataset.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// Transaction is a single bank transaction. Amounts follow the
// aggregator convention: positive values are debits (money out),
// negative values are credits (money in).
type Transaction struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Amount   float64 `json:"amount"`
	Name     string  `json:"name"`
	Merchant string  `json:"merchant,omitempty"`
	Category string  `json:"category,omitempty"`
}

// BankRecord is everything the bank provider knows about one applicant.
type BankRecord struct {
	Transactions []Transaction `json:"transactions"`
	CreditScore  int           `json:"creditScore,omitempty"` // 0 means unavailable
}

// BankProvider resolves an applicant ID to their transaction history.
type BankProvider interface {
	History(ctx context.Context, applicantID string) (BankRecord, error)
}

// CommunityMetrics describes the neighborhood a business operates in.
type CommunityMetrics struct {
	LowIncomeArea        bool    `json:"lowIncomeArea"`
	FoodDesert           bool    `json:"foodDesert"`
	LocalHiringRate      float64 `json:"localHiringRate"`
	NearestGroceryMiles  float64 `json:"nearestGroceryMiles"`
	NearestPharmacyMiles float64 `json:"nearestPharmacyMiles"`
}

// DefaultMetrics is returned when a zip code has no entry in the
// dataset. The values describe a well-served neighborhood so that
// missing data never inflates an impact multiplier.
func DefaultMetrics() CommunityMetrics {
	return CommunityMetrics{
		LowIncomeArea:        false,
		FoodDesert:           false,
		LocalHiringRate:      0.5,
		NearestGroceryMiles:  1.0,
		NearestPharmacyMiles: 0.8,
	}
}

// CommunityProvider resolves a zip code to neighborhood metrics.
// Implementations return DefaultMetrics for unknown zips rather than
// an error; errors are reserved for lookup infrastructure failures.
type CommunityProvider interface {
	Metrics(ctx context.Context, zip string) (CommunityMetrics, error)
}

// NotFoundError reports an applicant the bank provider has no record of.
type NotFoundError struct {
	ApplicantID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no bank record for applicant %q", e.ApplicantID)
}

// IsNotFound reports whether err is a provider NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
