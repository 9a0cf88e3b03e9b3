package providers

import "context"

// StaticBank serves bank records from an in-memory map. Lookups for
// unknown applicants fail with a NotFoundError.
type StaticBank struct {
	records map[string]BankRecord
}

// NewStaticBank copies the given records into a provider. The map keys
// are applicant IDs.
func NewStaticBank(records map[string]BankRecord) *StaticBank {
	copied := make(map[string]BankRecord, len(records))
	for id, rec := range records {
		copied[id] = rec
	}
	return &StaticBank{records: copied}
}

func (b *StaticBank) History(ctx context.Context, applicantID string) (BankRecord, error) {
	if err := ctx.Err(); err != nil {
		return BankRecord{}, err
	}
	rec, ok := b.records[applicantID]
	if !ok {
		return BankRecord{}, &NotFoundError{ApplicantID: applicantID}
	}
	return rec, nil
}

// StaticCommunity serves neighborhood metrics from an in-memory map
// keyed by zip code. Unknown zips resolve to DefaultMetrics.
type StaticCommunity struct {
	metrics map[string]CommunityMetrics
}

func NewStaticCommunity(metrics map[string]CommunityMetrics) *StaticCommunity {
	copied := make(map[string]CommunityMetrics, len(metrics))
	for zip, m := range metrics {
		copied[zip] = m
	}
	return &StaticCommunity{metrics: copied}
}

func (c *StaticCommunity) Metrics(ctx context.Context, zip string) (CommunityMetrics, error) {
	if err := ctx.Err(); err != nil {
		return CommunityMetrics{}, err
	}
	if m, ok := c.metrics[zip]; ok {
		return m, nil
	}
	return DefaultMetrics(), nil
}
