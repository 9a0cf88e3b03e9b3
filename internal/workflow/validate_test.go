package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedcap/lendflow/internal/record"
)

func noopStage() Stage {
	return StageFunc(func(context.Context, RunContext) (record.Record, error) {
		return record.Record{"ok": true}, nil
	})
}

func node(id string, deps ...string) StageNode {
	return StageNode{
		ID:        id,
		DependsOn: deps,
		Fallback:  record.Record{"ok": false},
		Runner:    noopStage(),
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_ValidPipeline(t *testing.T) {
	def := &Definition{
		ID: "test",
		Stages: []StageNode{
			node("intake"),
			node("financial", "intake"),
			node("community", "intake"),
			node("audit", "financial", "community"),
			node("compliance", "audit"),
		},
		Edges: []Edge{
			{From: "audit", To: "compliance"},
			{From: "compliance", To: End},
		},
	}
	assert.Empty(t, Validate(def))

	entry, ok := def.Entry()
	require.True(t, ok)
	assert.Equal(t, "intake", entry.ID)
}

func TestValidate_EmptyDefinition(t *testing.T) {
	errs := Validate(&Definition{ID: "empty"})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNoStages, errs[0].Code)
}

func TestValidate_DuplicateStageID(t *testing.T) {
	def := &Definition{Stages: []StageNode{node("a"), node("a")}}
	assert.Contains(t, codes(Validate(def)), ErrDuplicateStage)
}

func TestValidate_NoEntryStage(t *testing.T) {
	// Two stages depending on each other: no entry, and a cycle if we got
	// that far (we don't: reference checks pass, entry check fails first).
	def := &Definition{Stages: []StageNode{node("a", "b"), node("b", "a")}}
	assert.Contains(t, codes(Validate(def)), ErrNoEntryStage)
}

func TestValidate_MultipleEntryStages(t *testing.T) {
	def := &Definition{Stages: []StageNode{node("a"), node("b")}}
	assert.Contains(t, codes(Validate(def)), ErrMultipleEntries)
}

func TestValidate_UnknownDependency(t *testing.T) {
	def := &Definition{Stages: []StageNode{node("a"), node("b", "ghost")}}
	errs := Validate(def)
	require.NotEmpty(t, errs)
	assert.Contains(t, codes(errs), ErrUnknownDependency)
}

func TestValidate_UnknownEdgeTarget(t *testing.T) {
	def := &Definition{
		Stages: []StageNode{node("a")},
		Edges:  []Edge{{From: "a", To: "ghost"}},
	}
	assert.Contains(t, codes(Validate(def)), ErrUnknownEdgeStage)
}

func TestValidate_CycleThroughEdges(t *testing.T) {
	def := &Definition{
		Stages: []StageNode{node("a"), node("b", "a"), node("c", "b")},
		Edges:  []Edge{{From: "c", To: "b"}},
	}
	assert.Contains(t, codes(Validate(def)), ErrCycleDetected)
}

func TestValidate_DisconnectedCluster(t *testing.T) {
	// Transitive dependency chains rooted at the entry are all reachable.
	chained := &Definition{
		Stages: []StageNode{node("a"), node("b", "a"), node("c", "d"), node("d", "b")},
	}
	assert.Empty(t, Validate(chained))

	// A cluster that only feeds itself is flagged: the cycle makes it both
	// cyclic and unreachable from the entry stage.
	disconnected := &Definition{
		Stages: []StageNode{node("a"), node("x", "y"), node("y", "x")},
	}
	errs := codes(Validate(disconnected))
	assert.Contains(t, errs, ErrCycleDetected)
	assert.Contains(t, errs, ErrUnreachableStage)
}

func TestValidate_FallbackRequiredAndSchemaChecked(t *testing.T) {
	schema := record.MustCompileSchema(`{
		"type": "object",
		"required": ["score"],
		"properties": {"score": {"type": "integer"}}
	}`)

	missing := &Definition{Stages: []StageNode{{ID: "a", Runner: noopStage()}}}
	assert.Contains(t, codes(Validate(missing)), ErrMissingFallback)

	bad := &Definition{Stages: []StageNode{{
		ID:           "a",
		Runner:       noopStage(),
		OutputSchema: schema,
		Fallback:     record.Record{"wrong": 1},
	}}}
	assert.Contains(t, codes(Validate(bad)), ErrFallbackSchema)

	good := &Definition{Stages: []StageNode{{
		ID:           "a",
		Runner:       noopStage(),
		OutputSchema: schema,
		Fallback:     record.Record{"score": 1},
	}}}
	assert.Empty(t, Validate(good))
}

func TestValidate_ConditionalEdgeNeedsLabel(t *testing.T) {
	def := &Definition{
		Stages: []StageNode{node("a"), node("b", "a")},
		Edges: []Edge{
			{From: "a", To: "b", When: func(View) bool { return true }},
		},
	}
	assert.Contains(t, codes(Validate(def)), ErrUnlabeledBranch)
}

func TestValidate_RunnerRequired(t *testing.T) {
	def := &Definition{Stages: []StageNode{{ID: "a", Fallback: record.Record{}}}}
	assert.Contains(t, codes(Validate(def)), ErrMissingRunner)
}

func TestDefinition_OutgoingEdgesPreserveOrder(t *testing.T) {
	approve := func(View) bool { return false }
	def := &Definition{
		Stages: []StageNode{node("a"), node("b", "a"), node("c", "a")},
		Edges: []Edge{
			{From: "a", To: "b", When: approve, Label: "approve"},
			{From: "a", To: "c", When: approve, Label: "otherwise"},
		},
	}
	edges := def.OutgoingEdges("a")
	require.Len(t, edges, 2)
	assert.Equal(t, "approve", edges[0].Label)
	assert.Equal(t, "otherwise", edges[1].Label)
}
