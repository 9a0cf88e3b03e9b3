package stages

import (
	"context"
	"fmt"

	"github.com/seedcap/lendflow/internal/providers"
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

var financialSchema = record.MustCompileSchema(`{
	"type": "object",
	"required": ["avgMonthlyRevenue", "revenueMonths", "volatility",
	             "nsfCount", "debtToIncome", "creditScore"],
	"properties": {
		"avgMonthlyRevenue": {"type": "number", "minimum": 0},
		"revenueMonths":     {"type": "integer", "minimum": 0},
		"volatility":        {"type": "number", "minimum": 0, "maximum": 1},
		"nsfCount":          {"type": "integer", "minimum": 0},
		"debtToIncome":      {"type": "number", "minimum": 0},
		"creditScore":       {"type": "integer", "minimum": 0}
	}
}`)

// Financial returns the bank-history stage. It fetches the applicant's
// transactions and commits the extracted features. The fallback is the
// no-data feature set, which the score bands treat as the worst case.
func Financial(bank providers.BankProvider) workflow.StageNode {
	return workflow.StageNode{
		ID:           FinancialID,
		DependsOn:    []string{IntakeID},
		OutputSchema: financialSchema,
		Fallback: record.Record{
			"avgMonthlyRevenue": 0.0,
			"revenueMonths":     0,
			"volatility":        1.0,
			"nsfCount":          0,
			"debtToIncome":      0.0,
			"creditScore":       0,
		},
		Runner: workflow.StageFunc(func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
			var app Applicant
			if err := readInto(rc, IntakeID, &app); err != nil {
				return nil, err
			}

			hist, err := bank.History(ctx, app.ApplicantID)
			if err != nil {
				return nil, fmt.Errorf("bank history: %w", err)
			}
			f := providers.ExtractFeatures(hist)

			rc.Append(workflow.TraceEntry{
				Agent: FinancialID,
				Step:  "extracted",
				Message: fmt.Sprintf("%d transactions over %d revenue months",
					len(hist.Transactions), f.RevenueMonths),
			})
			return record.FromStruct(f)
		}),
	}
}
