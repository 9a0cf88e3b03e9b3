package stages

import (
	"context"
	"fmt"

	"github.com/seedcap/lendflow/internal/providers"
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/scoring"
	"github.com/seedcap/lendflow/internal/workflow"
)

var communitySchema = record.MustCompileSchema(`{
	"type": "object",
	"required": ["businessType", "nearestCompetitorMiles", "hiresLocally",
	             "lowIncomeArea", "foodDesert", "localHiringRate",
	             "nearestGroceryMiles", "nearestPharmacyMiles"],
	"properties": {
		"businessType":           {"type": "string"},
		"nearestCompetitorMiles": {"type": "number", "minimum": 0},
		"hiresLocally":           {"type": "boolean"},
		"lowIncomeArea":          {"type": "boolean"},
		"foodDesert":             {"type": "boolean"},
		"localHiringRate":        {"type": "number", "minimum": 0, "maximum": 1},
		"nearestGroceryMiles":    {"type": "number", "minimum": 0},
		"nearestPharmacyMiles":   {"type": "number", "minimum": 0}
	}
}`)

// Community returns the neighborhood-lookup stage. It combines the
// applicant profile with the community metrics for their zip code into
// a scoring.CommunityProfile. The fallback is a neutral profile, which
// yields a 1.0 multiplier.
func Community(comm providers.CommunityProvider) workflow.StageNode {
	defaults := providers.DefaultMetrics()
	return workflow.StageNode{
		ID:           CommunityID,
		DependsOn:    []string{IntakeID},
		OutputSchema: communitySchema,
		Fallback: record.Record{
			"businessType":           "",
			"nearestCompetitorMiles": 0.0,
			"hiresLocally":           false,
			"lowIncomeArea":          defaults.LowIncomeArea,
			"foodDesert":             defaults.FoodDesert,
			"localHiringRate":        defaults.LocalHiringRate,
			"nearestGroceryMiles":    defaults.NearestGroceryMiles,
			"nearestPharmacyMiles":   defaults.NearestPharmacyMiles,
		},
		Runner: workflow.StageFunc(func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
			var app Applicant
			if err := readInto(rc, IntakeID, &app); err != nil {
				return nil, err
			}

			m, err := comm.Metrics(ctx, app.Zip)
			if err != nil {
				return nil, fmt.Errorf("community metrics for zip %q: %w", app.Zip, err)
			}

			profile := scoring.CommunityProfile{
				BusinessType:           app.BusinessType,
				NearestCompetitorMiles: app.NearestCompetitorMiles,
				HiresLocally:           app.HiresLocally,
				LowIncomeArea:          m.LowIncomeArea,
				FoodDesert:             m.FoodDesert,
				LocalHiringRate:        m.LocalHiringRate,
				NearestGroceryMiles:    m.NearestGroceryMiles,
				NearestPharmacyMiles:   m.NearestPharmacyMiles,
			}

			rc.Append(workflow.TraceEntry{
				Agent:   CommunityID,
				Step:    "resolved",
				Message: fmt.Sprintf("zip %s: low income %t, food desert %t", app.Zip, m.LowIncomeArea, m.FoodDesert),
			})
			return record.FromStruct(profile)
		}),
	}
}
