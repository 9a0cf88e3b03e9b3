package stages

import (
	"context"
	"fmt"

	"github.com/seedcap/lendflow/internal/policy"
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

var complianceSchema = record.MustCompileSchema(`{
	"type": "object",
	"required": ["category", "adjustedScore", "rationale", "explain"],
	"properties": {
		"category":      {"type": "string", "enum": ["APPROVE", "DENY", "REFER"]},
		"adjustedScore": {"type": "number", "minimum": 0},
		"rationale":     {"type": "string"},
		"loanTerms": {
			"type": "object",
			"required": ["loanAmount", "interestRate", "termMonths", "monthlyPayment"]
		},
		"explain": {
			"type": "object",
			"required": ["baselineScore", "communityMultiplier", "adjustedScore",
			             "policyChecks", "decisionPath"]
		}
	}
}`)

// Compliance returns the decision stage. It applies the business rule
// policy to the audit score, risk flags and optional impact multiplier.
// The fallback refers the application to manual review, never approves.
func Compliance(pol *policy.BusinessRulePolicy) workflow.StageNode {
	return workflow.StageNode{
		ID:           ComplianceID,
		DependsOn:    []string{AuditID, FinancialID},
		OutputSchema: complianceSchema,
		Fallback: record.Record{
			"category":      string(policy.Refer),
			"adjustedScore": 0.0,
			"rationale":     "assessment incomplete; referred for manual review",
			"explain": record.Record{
				"baselineScore":       0.0,
				"communityMultiplier": 1.0,
				"adjustedScore":       0.0,
				"policyChecks":        []any{},
				"decisionPath":        "incomplete",
			},
		},
		Runner: workflow.StageFunc(func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
			var report AuditReport
			if err := readInto(rc, AuditID, &report); err != nil {
				return nil, err
			}
			f, err := features(rc)
			if err != nil {
				return nil, err
			}

			in := policy.Input{
				AuditScore: report.Score,
				Multiplier: 1.0,
				Flags:      report.Flags,
				Features:   f,
			}
			if impactRec, ok := rc.Output(ImpactID); ok {
				var impact ImpactReport
				if err := record.ToStruct(impactRec, &impact); err != nil {
					return nil, fmt.Errorf("namespace %q: %w", ImpactID, err)
				}
				in.Multiplier = impact.Multiplier
				in.ImpactRan = true
			}

			decision := pol.Decide(in)

			rc.Append(workflow.TraceEntry{
				Agent:     ComplianceID,
				Step:      workflow.StepDecision,
				Message:   fmt.Sprintf("decision %s at adjusted score %.1f", decision.Category, decision.AdjustedScore),
				Decision:  string(decision.Category),
				Reasoning: decision.Rationale,
			})
			return record.FromStruct(decision)
		}),
	}
}
