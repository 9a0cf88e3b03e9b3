package scoring

import (
	"context"

	"github.com/seedcap/lendflow/internal/record"
)

// Advisory task identifiers.
const (
	TaskAuditScore       = "audit_score"
	TaskImpactMultiplier = "impact_multiplier"
)

// AdvisoryRequest asks an advisor for a refined figure inside hard
// bounds. Data carries the task's inputs (features, flags, community
// context) for whatever prompt the advisor builds from them.
type AdvisoryRequest struct {
	Task   string
	Bounds ScoreBounds
	Data   record.Record
}

// Advisory is the verdict an advisor must return: exactly these two
// fields, as JSON. Anything else is rejected and the caller falls back
// to the deterministic estimate.
type Advisory struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// Advisor produces advisory verdicts. Implementations wrap a model call;
// tests use a scripted advisor. A nil Advisor means purely rule-based
// operation.
//
// Advise returns the raw JSON verdict. The HybridScorer owns decoding
// and bounds enforcement, so a misbehaving advisor can degrade a score's
// nuance but never move it outside its deterministic bounds.
type Advisor interface {
	Advise(ctx context.Context, req AdvisoryRequest) ([]byte, error)
}
