package harness

import (
	"slices"

	"github.com/seedcap/lendflow/internal/assess"
	"github.com/seedcap/lendflow/internal/workflow"
)

func checkAssertion(result *Result, index int, a *Assertion) {
	report := result.Report
	switch a.Type {
	case AssertDecision:
		if got := string(report.Decision.Category); got != a.Category {
			result.AddError("assertions[%d]: decision %s, expected %s", index, got, a.Category)
		}
		if a.AdjustedScore != nil && report.Decision.AdjustedScore != *a.AdjustedScore {
			result.AddError("assertions[%d]: adjusted score %g, expected %g",
				index, report.Decision.AdjustedScore, *a.AdjustedScore)
		}

	case AssertStatus:
		if got := string(report.Status); got != a.Status {
			result.AddError("assertions[%d]: status %s, expected %s", index, got, a.Status)
		}

	case AssertRouteTaken:
		if !slices.Contains(RouteLabels(report), a.Label) {
			result.AddError("assertions[%d]: route %q was not taken (routes: %v)",
				index, a.Label, RouteLabels(report))
		}

	case AssertStageRan:
		if !slices.Contains(report.Result.Metadata.StagesRun, a.Stage) {
			result.AddError("assertions[%d]: stage %q did not run (ran: %v)",
				index, a.Stage, report.Result.Metadata.StagesRun)
		}

	case AssertFallbackUsed:
		sr, ok := report.Result.StageResults[a.Stage]
		if !ok || !sr.FallbackUsed {
			result.AddError("assertions[%d]: stage %q did not use its fallback", index, a.Stage)
		}

	case AssertTraceContains:
		if !traceContains(report.Result.Trace, a.Agent, a.Step) {
			result.AddError("assertions[%d]: no trace entry with agent %q step %q", index, a.Agent, a.Step)
		}

	case AssertOutputContains:
		rec, ok := report.Result.Outputs[a.Stage]
		if !ok {
			result.AddError("assertions[%d]: namespace %q was never committed", index, a.Stage)
			return
		}
		for key, want := range a.Expect {
			if !looseEqual(rec[key], want) {
				result.AddError("assertions[%d]: %s.%s = %v, expected %v", index, a.Stage, key, rec[key], want)
			}
		}
	}
}

// RouteLabels lists the routing labels a run took, in order.
func RouteLabels(report *assess.Report) []string {
	var labels []string
	for _, e := range report.Result.Trace {
		if e.Step != workflow.StepRoute {
			continue
		}
		if label, ok := e.Decision.(string); ok {
			labels = append(labels, label)
		}
	}
	return labels
}

func traceContains(trace []workflow.TraceEntry, agent, step string) bool {
	for _, e := range trace {
		if agent != "" && e.Agent != agent {
			continue
		}
		if step != "" && e.Step != step {
			continue
		}
		return true
	}
	return false
}

// looseEqual compares a committed output value with a YAML expectation.
// YAML yields int for whole numbers where JSON round trips yield
// float64, so numbers compare by value.
func looseEqual(got, want any) bool {
	if gf, ok := asFloat(got); ok {
		if wf, ok := asFloat(want); ok {
			return gf == wf
		}
		return false
	}
	return got == want
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
