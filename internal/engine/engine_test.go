package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

func emit(rec record.Record) workflow.StageFunc {
	return func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
		return rec, nil
	}
}

func failing(msg string) workflow.StageFunc {
	return func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
		return nil, errors.New(msg)
	}
}

func blocking() workflow.StageFunc {
	return func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func testNode(id string, runner workflow.Stage, deps ...string) workflow.StageNode {
	return workflow.StageNode{
		ID:        id,
		DependsOn: deps,
		Fallback:  record.Record{"degraded": true},
		Runner:    runner,
	}
}

func newTestEngine(t *testing.T, def *workflow.Definition, opts ...Option) *Engine {
	t.Helper()
	e, err := New(def, NewFixedGenerator("run-1"), opts...)
	require.NoError(t, err, "definition should validate")
	return e
}

func TestEngine_New_InvalidDefinition(t *testing.T) {
	_, err := New(&workflow.Definition{ID: "empty"}, NewFixedGenerator("run-1"))

	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeInvalidDefinition))
}

func TestEngine_Execute_LinearPipeline(t *testing.T) {
	def := &workflow.Definition{
		ID: "linear",
		Stages: []workflow.StageNode{
			testNode("a", emit(record.Record{"from": "a"})),
			testNode("b", emit(record.Record{"from": "b"}), "a"),
		},
		Decision: "b",
	}
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{"amount": 5000.0})
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"a", "b"}, res.Metadata.StagesRun)
	assert.Equal(t, "b", res.Decision.String("from"))

	// Inputs are committed under the reserved namespace.
	assert.Equal(t, 5000.0, res.Outputs[workflow.InputsNamespace].Float("amount"))

	require.NotEmpty(t, res.Trace)
	assert.Equal(t, workflow.StepRunStart, res.Trace[0].Step)
}

func TestEngine_Execute_MissingRequiredInput(t *testing.T) {
	def := &workflow.Definition{
		ID:             "strict",
		Stages:         []workflow.StageNode{testNode("a", emit(record.Record{}))},
		RequiredInputs: []string{"application"},
	}
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{})

	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeMissingInput))
	assert.Nil(t, res)
}

func TestEngine_Execute_FanOutFanIn(t *testing.T) {
	join := workflow.StageFunc(func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
		left, err := rc.Read("b")
		if err != nil {
			return nil, err
		}
		right, err := rc.Read("c")
		if err != nil {
			return nil, err
		}
		return record.Record{"left": left.String("from"), "right": right.String("from")}, nil
	})

	def := &workflow.Definition{
		ID: "diamond",
		Stages: []workflow.StageNode{
			testNode("a", emit(record.Record{"from": "a"})),
			testNode("b", emit(record.Record{"from": "b"}), "a"),
			testNode("c", emit(record.Record{"from": "c"}), "a"),
			testNode("d", join, "b", "c"),
		},
		Decision: "d",
	}
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, []string{"a", "b", "c", "d"}, res.Metadata.StagesRun,
		"waves should dispatch in declaration order")
	assert.Equal(t, "b", res.Decision.String("left"))
	assert.Equal(t, "c", res.Decision.String("right"))
}

func TestEngine_Execute_StageErrorFallsBack(t *testing.T) {
	def := &workflow.Definition{
		ID: "faulty",
		Stages: []workflow.StageNode{
			testNode("a", emit(record.Record{"from": "a"})),
			testNode("b", failing("provider unavailable"), "a"),
			testNode("c", emit(record.Record{"from": "c"}), "b"),
		},
		Decision: "c",
	}
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{})
	require.NoError(t, err, "stage errors must not fail the run")

	assert.Equal(t, StatusCompletedWithFallbacks, res.Status)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"b"}, res.FallbacksUsed())

	sr := res.StageResults["b"]
	assert.False(t, sr.Success)
	assert.True(t, sr.FallbackUsed)
	assert.Contains(t, sr.Error, "provider unavailable")

	// Downstream saw the fallback record, not a gap.
	assert.True(t, res.Outputs["b"].Bool("degraded"))
	assert.Equal(t, "c", res.Decision.String("from"))

	var warned bool
	for _, entry := range res.Trace {
		if entry.Agent == "b" && entry.Step == workflow.StepFallback {
			warned = true
			assert.Equal(t, workflow.SeverityWarning, entry.Severity)
		}
	}
	assert.True(t, warned, "fallback substitution should leave a warning trace entry")
}

func TestEngine_Execute_StageTimeoutFallsBack(t *testing.T) {
	def := &workflow.Definition{
		ID: "slow",
		Stages: []workflow.StageNode{
			testNode("a", emit(record.Record{"from": "a"})),
			{
				ID:        "b",
				DependsOn: []string{"a"},
				Timeout:   20 * time.Millisecond,
				Fallback:  record.Record{"degraded": true},
				Runner:    blocking(),
			},
		},
		Decision: "b",
	}
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{})
	require.NoError(t, err)

	assert.Equal(t, StatusCompletedWithFallbacks, res.Status)
	sr := res.StageResults["b"]
	assert.True(t, sr.FallbackUsed)
	assert.Contains(t, sr.Error, context.DeadlineExceeded.Error())
	assert.True(t, res.Decision.Bool("degraded"))
}

func TestEngine_Execute_StagePanicFallsBack(t *testing.T) {
	panicking := workflow.StageFunc(func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
		panic("nil provider response")
	})
	def := &workflow.Definition{
		ID: "panicky",
		Stages: []workflow.StageNode{
			testNode("a", emit(record.Record{"from": "a"})),
			testNode("b", panicking, "a"),
		},
		Decision: "b",
	}
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{})
	require.NoError(t, err, "a panicking stage must not crash the run")

	sr := res.StageResults["b"]
	assert.True(t, sr.FallbackUsed)
	assert.Contains(t, sr.Error, "panicked")
	assert.Contains(t, sr.Error, "nil provider response")
}

func TestEngine_Execute_SchemaViolationFallsBack(t *testing.T) {
	schema := record.MustCompileSchema(`{
		"type": "object",
		"required": ["score"],
		"properties": {"score": {"type": "number"}}
	}`)
	def := &workflow.Definition{
		ID: "typed",
		Stages: []workflow.StageNode{
			{
				ID:           "scorer",
				OutputSchema: schema,
				Fallback:     record.Record{"score": 0.0},
				Runner:       emit(record.Record{"score": "very high"}),
			},
		},
		Decision: "scorer",
	}
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{})
	require.NoError(t, err)

	sr := res.StageResults["scorer"]
	assert.True(t, sr.FallbackUsed, "schema-violating output must be replaced by the fallback")
	assert.Contains(t, sr.Error, "output rejected")
	assert.Equal(t, 0.0, res.Decision.Float("score"))
}

func routeDef(score float64) *workflow.Definition {
	return &workflow.Definition{
		ID: "routed",
		Stages: []workflow.StageNode{
			testNode("a", emit(record.Record{"score": score})),
			testNode("b", emit(record.Record{"branch": "high"}), "a"),
			testNode("c", emit(record.Record{"branch": "low"}), "a"),
		},
		Edges: []workflow.Edge{
			{From: "a", To: "b", Label: "high", When: func(v workflow.View) bool {
				rec, _ := v.Output("a")
				return rec.Float("score") >= 75
			}},
			{From: "a", To: "c", Label: "low", When: func(v workflow.View) bool {
				rec, _ := v.Output("a")
				return rec.Float("score") < 75
			}},
		},
	}
}

func TestEngine_Execute_ConditionalRouting(t *testing.T) {
	e := newTestEngine(t, routeDef(82))

	res, err := e.Execute(context.Background(), record.Record{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, res.Metadata.StagesRun, "only the matched branch runs")
	_, ran := res.Outputs["c"]
	assert.False(t, ran, "declined branch must not write its namespace")

	var routed bool
	for _, entry := range res.Trace {
		if entry.Step == workflow.StepRoute {
			routed = true
			assert.Equal(t, "high", entry.Decision)
		}
	}
	assert.True(t, routed, "taken branch should leave a route trace entry")
}

func TestEngine_Execute_RoutingExhausted(t *testing.T) {
	def := routeDef(50)
	// Break both predicates so no edge matches.
	def.Edges[0].When = func(workflow.View) bool { return false }
	def.Edges[1].When = func(workflow.View) bool { return false }
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{})

	require.Error(t, err)
	assert.True(t, IsRoutingExhausted(err))
	require.NotNil(t, res, "failed runs still return the partial result")
	assert.Equal(t, StatusFailed, res.Status)
	assert.False(t, res.Success)
}

func TestEngine_Execute_RunDeadline(t *testing.T) {
	def := &workflow.Definition{
		ID: "deadline",
		Stages: []workflow.StageNode{
			testNode("a", blocking()),
			testNode("b", emit(record.Record{"from": "b"}), "a"),
		},
		Decision: "b",
	}
	e := newTestEngine(t, def, WithRunTimeout(30*time.Millisecond))

	start := time.Now()
	res, err := e.Execute(context.Background(), record.Record{})
	require.NoError(t, err, "a run deadline must still produce a decision")

	assert.Less(t, time.Since(start), 5*time.Second, "deadline must cut the blocking stage short")
	assert.Equal(t, StatusCompletedWithFallbacks, res.Status)
	assert.True(t, res.StageResults["a"].FallbackUsed)
	assert.True(t, res.StageResults["b"].Skipped, "stages after the deadline are never dispatched")
	assert.True(t, res.Decision.Bool("degraded"))
}

func TestEngine_Execute_FallbackDecisionWhenStageSkipped(t *testing.T) {
	def := &workflow.Definition{
		ID: "short-circuit",
		Stages: []workflow.StageNode{
			testNode("a", emit(record.Record{"eligible": false})),
			testNode("d", emit(record.Record{"category": "APPROVE"}), "a"),
		},
		Edges: []workflow.Edge{
			{From: "a", To: workflow.End, Label: "ineligible", When: func(v workflow.View) bool {
				rec, _ := v.Output("a")
				return !rec.Bool("eligible")
			}},
			{From: "a", To: "d", Label: "assess", When: func(workflow.View) bool { return true }},
		},
		Decision: "d",
	}
	e := newTestEngine(t, def)

	res, err := e.Execute(context.Background(), record.Record{})
	require.NoError(t, err)

	assert.Equal(t, StatusCompletedWithFallbacks, res.Status)
	assert.NotContains(t, res.Metadata.StagesRun, "d")
	require.NotNil(t, res.Decision, "every non-failed run carries a decision")
	assert.True(t, res.Decision.Bool("degraded"), "decision falls back when its stage never ran")
	assert.True(t, res.StageResults["d"].Skipped)
}
