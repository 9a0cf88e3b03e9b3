package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/seedcap/lendflow/internal/workflow"
)

// Assessment is one scored figure with its provenance: the hard bounds
// it was computed under, whether the advisory path or the rule-based
// path produced it, and the reasoning behind it.
type Assessment struct {
	Score     float64     `json:"score"`
	Bounds    ScoreBounds `json:"bounds"`
	Method    string      `json:"method"`
	Reasoning string      `json:"reasoning"`

	// Clamped is set when the advisory figure fell outside the bounds
	// and was forced back in.
	Clamped bool `json:"clamped,omitempty"`

	// AdvisoryScore is the advisor's raw figure before clamping, only
	// meaningful for the hybrid method.
	AdvisoryScore float64 `json:"advisoryScore,omitempty"`
}

// Estimate is a deterministic score with its reasoning, used whenever
// the advisory path is unavailable or misbehaves.
type Estimate struct {
	Score     float64
	Reasoning string
}

// HybridScorer combines deterministic rule evaluation with optional
// advisory refinement.
//
// The deterministic side always wins on safety: the advisor's figure is
// clamped into the rule-derived bounds, and any advisory failure
// (transport error, malformed JSON, unknown fields, non-finite score)
// routes to the deterministic estimate and tags the assessment
// rule-based. Advisory trouble is never an error to the caller.
type HybridScorer struct {
	advisor Advisor
}

// NewHybridScorer creates a scorer. A nil advisor yields a scorer that
// always takes the rule-based path.
func NewHybridScorer(advisor Advisor) *HybridScorer {
	return &HybridScorer{advisor: advisor}
}

// Assess produces the final figure for a request. The deterministic
// estimate must already be inside req.Bounds semantics-wise; it is
// clamped regardless, so the returned score is always within bounds.
func (s *HybridScorer) Assess(ctx context.Context, req AdvisoryRequest, det Estimate) Assessment {
	if s.advisor == nil {
		return s.ruleBased(req, det, "no advisor configured")
	}

	raw, err := s.advisor.Advise(ctx, req)
	if err != nil {
		return s.ruleBased(req, det, fmt.Sprintf("advisor error: %v", err))
	}

	adv, err := decodeAdvisory(raw)
	if err != nil {
		return s.ruleBased(req, det, fmt.Sprintf("advisory rejected: %v", err))
	}

	score, clamped := req.Bounds.Clamp(adv.Score)
	if clamped {
		slog.Warn("advisory score outside bounds, clamped",
			"task", req.Task,
			"advisory", adv.Score,
			"bounds", req.Bounds.String(),
		)
	}
	return Assessment{
		Score:         score,
		Bounds:        req.Bounds,
		Method:        workflow.MethodHybrid,
		Reasoning:     fmt.Sprintf("[Hybrid: bounds %s from risk rules] %s", req.Bounds.String(), adv.Reasoning),
		Clamped:       clamped,
		AdvisoryScore: adv.Score,
	}
}

func (s *HybridScorer) ruleBased(req AdvisoryRequest, det Estimate, cause string) Assessment {
	slog.Debug("advisory path unavailable, using rule-based estimate",
		"task", req.Task,
		"cause", cause,
	)
	score, _ := req.Bounds.Clamp(det.Score)
	return Assessment{
		Score:     score,
		Bounds:    req.Bounds,
		Method:    workflow.MethodRuleBased,
		Reasoning: det.Reasoning,
	}
}

// decodeAdvisory parses a raw advisory verdict strictly: exactly the
// documented fields, one JSON value, a finite score.
func decodeAdvisory(raw []byte) (Advisory, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var adv Advisory
	if err := dec.Decode(&adv); err != nil {
		return Advisory{}, fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return Advisory{}, fmt.Errorf("trailing data after verdict")
	}
	if math.IsNaN(adv.Score) || math.IsInf(adv.Score, 0) {
		return Advisory{}, fmt.Errorf("score is not a finite number")
	}
	return adv, nil
}
