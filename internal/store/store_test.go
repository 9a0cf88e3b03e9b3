package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedcap/lendflow/internal/engine"
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "lendflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(runID string) *engine.RunResult {
	return &engine.RunResult{
		RunID:   runID,
		Status:  engine.StatusCompleted,
		Success: true,
		Decision: record.Record{
			"category":      "APPROVE",
			"adjustedScore": 84.0,
			"rationale":     "meets threshold",
		},
		StageResults: map[string]engine.StageResult{
			"audit":      {Stage: "audit", Success: true, DurationMs: 12},
			"compliance": {Stage: "compliance", Success: true, DurationMs: 3},
		},
		Outputs: map[string]record.Record{
			"audit":      {"score": 70.0},
			"compliance": {"category": "APPROVE", "adjustedScore": 84.0},
		},
		Trace: []workflow.TraceEntry{
			{Seq: 1, Agent: "engine", Step: workflow.StepRunStart, Message: "run started", Severity: workflow.SeverityInfo},
			{Seq: 2, Agent: "audit", Step: "scored", Message: "scored 70", Severity: workflow.SeverityInfo, Method: workflow.MethodRuleBased, Reasoning: "rules"},
			{Seq: 3, Agent: "engine", Step: workflow.StepRoute, Message: "fast track", Severity: workflow.SeverityInfo, Decision: "fast_track"},
		},
		Metadata: engine.RunMetadata{DurationMs: 20, StagesRun: []string{"audit", "compliance"}},
	}
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lendflow.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, s2.Close())
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, "loan-assessment", sampleResult("run-1")))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "loan-assessment", run.Summary.DefinitionID)
	assert.Equal(t, engine.StatusCompleted, run.Summary.Status)
	assert.Equal(t, "APPROVE", run.Summary.Category)
	assert.Equal(t, 84.0, run.Summary.AdjustedScore)
	assert.False(t, run.Summary.CreatedAt.IsZero())

	assert.Equal(t, "meets threshold", run.Decision.String("rationale"))
	assert.Equal(t, 70.0, run.Outputs["audit"].Float("score"))

	require.Len(t, run.Stages, 2)
	assert.Equal(t, "audit", run.Stages[0].Stage, "stage rows come back in dispatch order")
	assert.True(t, run.Stages[0].Success)

	require.Len(t, run.Trace, 3)
	assert.Equal(t, workflow.StepRunStart, run.Trace[0].Step)
	assert.Equal(t, "fast_track", run.Trace[2].Decision)
}

func TestStore_SaveRunIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := sampleResult("run-1")
	require.NoError(t, s.SaveRun(ctx, "loan-assessment", res))

	// A second save with a mutated result must not overwrite the first.
	res.Decision["rationale"] = "changed"
	require.NoError(t, s.SaveRun(ctx, "loan-assessment", res))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "meets threshold", run.Decision.String("rationale"))
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, "loan-assessment", sampleResult("run-a")))
	require.NoError(t, s.SaveRun(ctx, "loan-assessment", sampleResult("run-b")))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	ids := []string{runs[0].RunID, runs[1].RunID}
	assert.ElementsMatch(t, []string{"run-a", "run-b"}, ids)
	assert.False(t, runs[0].CreatedAt.Before(runs[1].CreatedAt))
}

func TestStore_ListRunsHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, s.SaveRun(ctx, "loan-assessment", sampleResult(id)))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_GetRunNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_ReadTraceEmptyForUnknownRun(t *testing.T) {
	s := openTestStore(t)

	trace, err := s.ReadTrace(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, trace)
	assert.Empty(t, trace)
}

func TestStore_BackstoppedStagePersisted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := sampleResult("run-1")
	res.StageResults["coach"] = engine.StageResult{
		Stage: "coach", Skipped: true, FallbackUsed: true, Error: "stage never dispatched",
	}
	res.Outputs["coach"] = record.Record{"summary": "coaching unavailable for this run"}
	require.NoError(t, s.SaveRun(ctx, "loan-assessment", res))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, run.Stages, 3)
	last := run.Stages[2]
	assert.Equal(t, "coach", last.Stage, "stages outside dispatch order sort last")
	assert.True(t, last.Skipped)
	assert.True(t, last.FallbackUsed)
}
