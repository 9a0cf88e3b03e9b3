package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

// Applicant is the normalized business profile the intake stage commits
// for everything downstream.
type Applicant struct {
	ApplicantID            string  `json:"applicantId"`
	BusinessName           string  `json:"businessName"`
	BusinessType           string  `json:"businessType"`
	Zip                    string  `json:"zip"`
	HiresLocally           bool    `json:"hiresLocally"`
	NearestCompetitorMiles float64 `json:"nearestCompetitorMiles"`
	RequestedAmount        float64 `json:"requestedAmount"`
}

var intakeSchema = record.MustCompileSchema(`{
	"type": "object",
	"required": ["applicantId", "businessName", "businessType", "zip",
	             "hiresLocally", "nearestCompetitorMiles", "requestedAmount"],
	"properties": {
		"applicantId":            {"type": "string"},
		"businessName":           {"type": "string"},
		"businessType":           {"type": "string"},
		"zip":                    {"type": "string"},
		"hiresLocally":           {"type": "boolean"},
		"nearestCompetitorMiles": {"type": "number", "minimum": 0},
		"requestedAmount":        {"type": "number", "minimum": 0}
	}
}`)

// Intake returns the entry stage. It validates the run inputs and
// commits a normalized applicant profile. Its fallback is an anonymous
// profile that scores as no-data downstream.
func Intake() workflow.StageNode {
	return workflow.StageNode{
		ID:           IntakeID,
		DependsOn:    []string{workflow.InputsNamespace},
		OutputSchema: intakeSchema,
		Fallback: record.Record{
			"applicantId":            "",
			"businessName":           "unknown",
			"businessType":           "",
			"zip":                    "",
			"hiresLocally":           false,
			"nearestCompetitorMiles": 0.0,
			"requestedAmount":        0.0,
		},
		Runner: workflow.StageFunc(runIntake),
	}
}

func runIntake(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
	inputs, err := rc.Read(workflow.InputsNamespace)
	if err != nil {
		return nil, err
	}

	app := Applicant{
		ApplicantID:            strings.TrimSpace(inputs.String("applicantId")),
		BusinessName:           strings.TrimSpace(inputs.String("businessName")),
		BusinessType:           strings.ToLower(strings.TrimSpace(inputs.String("businessType"))),
		Zip:                    strings.TrimSpace(inputs.String("zip")),
		HiresLocally:           inputs.Bool("hiresLocally"),
		NearestCompetitorMiles: inputs.Float("nearestCompetitorMiles"),
		RequestedAmount:        inputs.Float("requestedAmount"),
	}

	var missing []string
	for key, val := range map[string]string{
		"applicantId":  app.ApplicantID,
		"businessName": app.BusinessName,
		"businessType": app.BusinessType,
		"zip":          app.Zip,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("incomplete application: missing %s", strings.Join(missing, ", "))
	}
	if app.NearestCompetitorMiles < 0 || app.RequestedAmount < 0 {
		return nil, fmt.Errorf("negative distance or amount in application")
	}

	rc.Append(workflow.TraceEntry{
		Agent:   IntakeID,
		Step:    "validated",
		Message: fmt.Sprintf("accepted application for %s (%s)", app.BusinessName, app.BusinessType),
	})
	return record.FromStruct(app)
}
