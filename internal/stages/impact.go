package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/scoring"
	"github.com/seedcap/lendflow/internal/workflow"
)

// ImpactReport is the impact stage's committed output.
type ImpactReport struct {
	Multiplier float64             `json:"multiplier"`
	Bounds     scoring.ScoreBounds `json:"bounds"`
	Factors    []string            `json:"factors"`
	Method     string              `json:"method"`
	Reasoning  string              `json:"reasoning"`
}

var impactSchema = record.MustCompileSchema(`{
	"type": "object",
	"required": ["multiplier", "bounds", "factors", "method", "reasoning"],
	"properties": {
		"multiplier": {"type": "number", "minimum": 1.0, "maximum": 1.6},
		"bounds": {
			"type": "object",
			"required": ["min", "max"],
			"properties": {
				"min": {"type": "number"},
				"max": {"type": "number"}
			}
		},
		"factors":   {"type": "array", "items": {"type": "string"}},
		"method":    {"type": "string"},
		"reasoning": {"type": "string"}
	}
}`)

// Impact returns the community-impact stage, which converts the
// neighborhood profile into a score multiplier. The fallback is the
// neutral 1.0 multiplier.
func Impact(scorer *scoring.HybridScorer) workflow.StageNode {
	return workflow.StageNode{
		ID:           ImpactID,
		DependsOn:    []string{AuditID, CommunityID},
		OutputSchema: impactSchema,
		Fallback: record.Record{
			"multiplier": 1.0,
			"bounds":     record.Record{"min": 1.0, "max": 1.0},
			"factors":    []string{},
			"method":     workflow.MethodRuleBased,
			"reasoning":  "impact analysis unavailable; neutral multiplier substituted",
		},
		Runner: workflow.StageFunc(func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
			var profile scoring.CommunityProfile
			if err := readInto(rc, CommunityID, &profile); err != nil {
				return nil, err
			}

			base, factors := scoring.ImpactBase(profile)
			if factors == nil {
				factors = []string{}
			}
			bounds := scoring.ImpactBounds(base)
			reasoning := fmt.Sprintf("base multiplier %.2f from factors: %s", base, factorList(factors))

			data, err := record.FromStruct(profile)
			if err != nil {
				return nil, err
			}
			a := scorer.Assess(ctx, scoring.AdvisoryRequest{
				Task:   scoring.TaskImpactMultiplier,
				Bounds: bounds,
				Data:   data,
			}, scoring.Estimate{Score: base, Reasoning: reasoning})

			rc.Append(workflow.TraceEntry{
				Agent:     ImpactID,
				Step:      "scored",
				Message:   fmt.Sprintf("community multiplier %.2f from %d factors", a.Score, len(factors)),
				Method:    a.Method,
				Reasoning: a.Reasoning,
			})
			return record.FromStruct(ImpactReport{
				Multiplier: a.Score,
				Bounds:     a.Bounds,
				Factors:    factors,
				Method:     a.Method,
				Reasoning:  a.Reasoning,
			})
		}),
	}
}

func factorList(factors []string) string {
	if len(factors) == 0 {
		return "none"
	}
	return strings.Join(factors, ", ")
}
