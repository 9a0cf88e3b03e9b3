package engine

import (
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

// RunStatus is the lifecycle state of one assessment run.
type RunStatus string

const (
	// StatusPending: run accepted, not yet dispatched.
	StatusPending RunStatus = "pending"

	// StatusRunning: stages in flight.
	StatusRunning RunStatus = "running"

	// StatusCompleted: every dispatched stage produced its own output.
	StatusCompleted RunStatus = "completed"

	// StatusCompletedWithFallbacks: the run reached a decision, but at
	// least one stage output is a fallback substitute (stage error,
	// stage timeout, or run deadline).
	StatusCompletedWithFallbacks RunStatus = "completed_with_fallbacks"

	// StatusFailed: a defect in the run itself (routing exhausted,
	// duplicate namespace) prevented a decision.
	StatusFailed RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithFallbacks, StatusFailed:
		return true
	}
	return false
}

// StageResult is the outcome of one stage within a run.
//
// A stage always produces exactly one result. Output is the record
// committed to the stage's namespace; when FallbackUsed is set it is the
// node's declared fallback rather than anything the runner computed.
type StageResult struct {
	Stage   string        `json:"stage"`
	Success bool          `json:"success"`
	Output  record.Record `json:"output"`

	// Error is the failure that triggered fallback substitution, empty
	// on success.
	Error string `json:"error,omitempty"`

	// FallbackUsed marks a substituted output. Downstream stages cannot
	// tell the difference; callers and the trace can.
	FallbackUsed bool `json:"fallbackUsed"`

	// Skipped marks a stage the run deadline prevented from ever
	// starting. Skipped implies FallbackUsed.
	Skipped bool `json:"skipped,omitempty"`

	DurationMs int64 `json:"durationMs"`
}

// RunMetadata summarizes a finished run.
type RunMetadata struct {
	DurationMs int64 `json:"durationMs"`

	// StagesRun lists dispatched stages in dispatch order. Stages the
	// routing never enabled are absent.
	StagesRun []string `json:"stagesRun"`
}

// RunResult is the complete outcome of one assessment run.
type RunResult struct {
	RunID  string    `json:"runId"`
	Status RunStatus `json:"status"`

	// Success is true for any run that reached a decision, including
	// runs degraded by fallbacks. Only StatusFailed runs are unsuccessful.
	Success bool `json:"success"`

	// Decision is the record committed by the definition's decision
	// stage. Non-nil on every successful run.
	Decision record.Record `json:"decision,omitempty"`

	StageResults map[string]StageResult   `json:"stageResults"`
	Outputs      map[string]record.Record `json:"stageOutputs"`
	Trace        []workflow.TraceEntry    `json:"trace"`
	Metadata     RunMetadata              `json:"metadata"`
}

// FallbacksUsed returns the stages whose output is a fallback substitute,
// in dispatch order.
func (r *RunResult) FallbacksUsed() []string {
	var out []string
	for _, id := range r.Metadata.StagesRun {
		if sr, ok := r.StageResults[id]; ok && sr.FallbackUsed {
			out = append(out, id)
		}
	}
	return out
}
