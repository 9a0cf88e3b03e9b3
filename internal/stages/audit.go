package stages

import (
	"context"
	"fmt"

	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/scoring"
	"github.com/seedcap/lendflow/internal/workflow"
)

// AuditReport is the audit stage's committed output.
type AuditReport struct {
	Score     float64             `json:"score"`
	Bounds    scoring.ScoreBounds `json:"bounds"`
	Method    string              `json:"method"`
	Reasoning string              `json:"reasoning"`
	Flags     []string            `json:"flags"`
}

var auditSchema = record.MustCompileSchema(`{
	"type": "object",
	"required": ["score", "bounds", "method", "reasoning", "flags"],
	"properties": {
		"score": {"type": "number", "minimum": 1, "maximum": 100},
		"bounds": {
			"type": "object",
			"required": ["min", "max"],
			"properties": {
				"min": {"type": "number"},
				"max": {"type": "number"}
			}
		},
		"method":    {"type": "string"},
		"reasoning": {"type": "string"},
		"flags":     {"type": "array", "items": {"type": "string"}}
	}
}`)

// Audit returns the financial-health scoring stage. Deterministic rules
// fix the score bounds and a baseline estimate; the hybrid scorer may
// refine the figure inside the bounds. The fallback pins the score to
// the no-data floor so a failed audit can never inflate an assessment.
func Audit(scorer *scoring.HybridScorer, bands scoring.RiskBands) workflow.StageNode {
	return workflow.StageNode{
		ID:           AuditID,
		DependsOn:    []string{FinancialID, CommunityID},
		OutputSchema: auditSchema,
		Fallback: record.Record{
			"score":     1.0,
			"bounds":    record.Record{"min": 1.0, "max": 35.0},
			"method":    workflow.MethodRuleBased,
			"reasoning": "audit unavailable; floor score substituted",
			"flags":     []string{scoring.FlagNoRevenueData},
		},
		Runner: workflow.StageFunc(func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
			f, err := features(rc)
			if err != nil {
				return nil, err
			}

			flags := f.Flags(bands)
			if flags == nil {
				flags = []string{}
			}
			bounds := bands.For(f)
			base, reasoning := scoring.RuleBasedScore(f)

			data, err := record.FromStruct(f)
			if err != nil {
				return nil, err
			}
			a := scorer.Assess(ctx, scoring.AdvisoryRequest{
				Task:   scoring.TaskAuditScore,
				Bounds: bounds,
				Data:   data,
			}, scoring.Estimate{Score: base, Reasoning: reasoning})

			rc.Append(workflow.TraceEntry{
				Agent:     AuditID,
				Step:      "scored",
				Message:   fmt.Sprintf("financial health score %.1f in bounds %s with %d flags", a.Score, bounds, len(flags)),
				Method:    a.Method,
				Reasoning: a.Reasoning,
			})
			return record.FromStruct(AuditReport{
				Score:     a.Score,
				Bounds:    a.Bounds,
				Method:    a.Method,
				Reasoning: a.Reasoning,
				Flags:     flags,
			})
		}),
	}
}
