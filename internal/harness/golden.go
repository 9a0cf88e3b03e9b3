package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/seedcap/lendflow/internal/assess"
	"github.com/seedcap/lendflow/internal/record"
)

// Snapshot reduces a scenario outcome to its decision-relevant facts in
// canonical JSON. Free-form trace text stays out of the snapshot so the
// bytes only change when behavior changes.
func Snapshot(scenarioName string, report *assess.Report) ([]byte, error) {
	routes := RouteLabels(report)
	if routes == nil {
		routes = []string{}
	}
	fallbacks := report.Result.FallbacksUsed()
	if fallbacks == nil {
		fallbacks = []string{}
	}

	return record.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"runId":    report.RunID,
		"status":   string(report.Status),
		"decision": map[string]any{
			"category":      string(report.Decision.Category),
			"adjustedScore": report.Decision.AdjustedScore,
		},
		"stagesRun": report.Result.Metadata.StagesRun,
		"routes":    routes,
		"fallbacks": fallbacks,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, runner *Runner, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := runner.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	snapshot, err := Snapshot(scenario.Name, result.Report)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return result, nil
}
