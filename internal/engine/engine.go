// Package engine executes validated pipeline definitions: it dispatches
// ready stages in parallel, enforces stage and run deadlines, substitutes
// declared fallbacks for failed stages, and follows routing edges until
// the pipeline produces its decision record.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

// DefaultStageTimeout bounds one stage execution when the node declares
// no timeout of its own.
const DefaultStageTimeout = 10 * time.Second

// DefaultRunTimeout bounds a whole run. When it expires, in-flight stages
// are abandoned and every remaining stage gets its fallback, so the run
// still terminates with a decision.
const DefaultRunTimeout = 60 * time.Second

// Engine executes runs of one validated pipeline definition.
//
// The definition is immutable after construction and an Engine is safe
// for concurrent Execute calls; each run gets its own shared context,
// clock, and scheduling state.
//
// Scheduling model: stages execute in waves. Each wave dispatches every
// stage whose dependencies are committed and whose routing has enabled
// it, waits for the whole wave, then commits outputs and evaluates
// routing edges in declaration order. Commit and routing are
// single-threaded, which keeps runs deterministic apart from trace
// interleaving between parallel stages.
type Engine struct {
	def    *workflow.Definition
	runIDs RunIDGenerator

	stageTimeout time.Duration
	runTimeout   time.Duration
	maxParallel  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithStageTimeout overrides the default per-stage timeout. Individual
// nodes may still declare their own.
func WithStageTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.stageTimeout = d
	}
}

// WithRunTimeout overrides the default run deadline. Zero disables it.
func WithRunTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runTimeout = d
	}
}

// WithMaxParallel caps how many stages of one wave run concurrently.
// Zero means no cap.
func WithMaxParallel(n int) Option {
	return func(e *Engine) {
		e.maxParallel = n
	}
}

// New creates an Engine for a definition, validating it first.
//
// Returns an INVALID_DEFINITION RunError listing every structural problem
// if validation fails.
func New(def *workflow.Definition, runIDs RunIDGenerator, opts ...Option) (*Engine, error) {
	if errs := workflow.Validate(def); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, verr := range errs {
			msgs[i] = verr.Error()
		}
		return nil, &RunError{
			Code:    ErrCodeInvalidDefinition,
			Message: fmt.Sprintf("definition %q is invalid: %s", def.ID, strings.Join(msgs, "; ")),
		}
	}

	e := &Engine{
		def:          def,
		runIDs:       runIDs,
		stageTimeout: DefaultStageTimeout,
		runTimeout:   DefaultRunTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Definition returns the pipeline this engine executes.
func (e *Engine) Definition() *workflow.Definition {
	return e.def
}

// Execute runs the pipeline once against the given inputs and blocks
// until the run reaches a terminal state.
//
// The returned RunResult is non-nil whenever a run was actually started;
// on a failed run it carries the partial trace and stage results
// alongside the error. Stage errors and timeouts do not fail the run -
// they substitute fallbacks and degrade the status to
// CompletedWithFallbacks.
func (e *Engine) Execute(ctx context.Context, inputs record.Record) (*RunResult, error) {
	runID := e.runIDs.Generate()

	if missing := e.missingInputs(inputs); len(missing) > 0 {
		return nil, NewMissingInputError(runID, missing)
	}

	start := time.Now()
	sc := NewSharedContext(runID, NewClock())
	if err := sc.Write(workflow.InputsNamespace, inputs); err != nil {
		return nil, err
	}

	slog.Info("run starting", "run", runID, "pipeline", e.def.ID)
	sc.Append(workflow.TraceEntry{
		Agent:   "engine",
		Step:    workflow.StepRunStart,
		Message: fmt.Sprintf("pipeline %q starting", e.def.ID),
	})

	runCtx := ctx
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	res := &RunResult{
		RunID:        runID,
		Status:       StatusRunning,
		StageResults: make(map[string]StageResult),
	}
	st := newRunState(e.def)

	for {
		wave := st.ready()
		if len(wave) == 0 {
			break
		}

		outcomes := e.runWave(runCtx, sc, wave)

		for i, node := range wave {
			sr := e.commitStage(sc, node, outcomes[i])
			res.StageResults[node.ID] = sr
			res.Metadata.StagesRun = append(res.Metadata.StagesRun, node.ID)
			st.markDone(node.ID)

			if err := e.route(sc, st, node.ID); err != nil {
				return e.fail(res, sc, start, err), err
			}
		}
	}

	e.ensureDecision(sc, res)
	res.Decision, _ = sc.Output(e.def.Decision)

	res.Outputs = sc.Snapshot()
	res.Trace = sc.Trace()
	res.Metadata.DurationMs = time.Since(start).Milliseconds()
	res.Success = true
	res.Status = StatusCompleted
	degraded := runCtx.Err() != nil
	for _, sr := range res.StageResults {
		if sr.FallbackUsed {
			degraded = true
		}
	}
	if degraded {
		res.Status = StatusCompletedWithFallbacks
	}

	slog.Info("run finished",
		"run", runID,
		"status", res.Status,
		"stages", len(res.Metadata.StagesRun),
		"fallbacks", len(res.FallbacksUsed()),
		"duration_ms", res.Metadata.DurationMs,
	)
	return res, nil
}

func (e *Engine) missingInputs(inputs record.Record) []string {
	var missing []string
	for _, key := range e.def.RequiredInputs {
		if _, ok := inputs[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// runWave executes one wave of ready stages concurrently and returns
// their outcomes, indexed like the wave.
//
// If the run deadline has already passed, nothing is dispatched: every
// stage of the wave is marked skipped so commitStage substitutes its
// fallback and the run can still terminate.
func (e *Engine) runWave(ctx context.Context, sc *SharedContext, wave []workflow.StageNode) []stageOutcome {
	outcomes := make([]stageOutcome, len(wave))

	if ctx.Err() != nil {
		for i := range wave {
			outcomes[i] = stageOutcome{err: ctx.Err(), skipped: true}
		}
		return outcomes
	}

	for _, node := range wave {
		sc.Append(workflow.TraceEntry{
			Agent:   node.ID,
			Step:    workflow.StepStart,
			Message: "stage dispatched",
		})
		slog.Debug("stage dispatched", "run", sc.RunID(), "stage", node.ID)
	}

	g := new(errgroup.Group)
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}
	for i, node := range wave {
		g.Go(func() error {
			outcomes[i] = e.runStage(ctx, sc, node)
			return nil
		})
	}
	// Workers never return errors; failures become fallback outcomes.
	_ = g.Wait()
	return outcomes
}

type stageOutcome struct {
	output   record.Record
	err      error
	skipped  bool
	duration time.Duration
}

// runStage executes one stage under its timeout and validates the output
// against the node's schema. A runner that outlives its deadline is
// abandoned; it only holds the shared context, which tolerates late
// trace appends.
func (e *Engine) runStage(ctx context.Context, sc *SharedContext, node workflow.StageNode) stageOutcome {
	timeout := node.Timeout
	if timeout <= 0 {
		timeout = e.stageTimeout
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan stageOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- stageOutcome{err: fmt.Errorf("stage panicked: %v", r)}
			}
		}()
		out, err := node.Runner.Run(stageCtx, sc)
		done <- stageOutcome{output: out, err: err}
	}()

	var out stageOutcome
	select {
	case out = <-done:
	case <-stageCtx.Done():
		out = stageOutcome{err: stageCtx.Err()}
	}
	out.duration = time.Since(start)

	if out.err == nil && node.OutputSchema != nil {
		if verr := node.OutputSchema.Validate(out.output); verr != nil {
			out.output = nil
			out.err = fmt.Errorf("output rejected: %w", verr)
		}
	}
	return out
}

// commitStage turns an outcome into a StageResult and writes the stage's
// namespace: the runner's output on success, the declared fallback
// otherwise.
func (e *Engine) commitStage(sc *SharedContext, node workflow.StageNode, out stageOutcome) StageResult {
	sr := StageResult{
		Stage:      node.ID,
		DurationMs: out.duration.Milliseconds(),
	}

	committed := out.output
	if out.err != nil {
		sr.Error = out.err.Error()
		sr.FallbackUsed = true
		sr.Skipped = out.skipped
		committed = node.Fallback

		msg := fmt.Sprintf("fallback substituted: %s", sr.Error)
		if out.skipped {
			msg = "run deadline reached before dispatch; fallback substituted"
		}
		sc.Append(workflow.TraceEntry{
			Agent:    node.ID,
			Step:     workflow.StepFallback,
			Severity: workflow.SeverityWarning,
			Message:  msg,
		})
		slog.Warn("stage fell back",
			"run", sc.RunID(),
			"stage", node.ID,
			"skipped", out.skipped,
			"error", sr.Error,
		)
	} else {
		sr.Success = true
		sc.Append(workflow.TraceEntry{
			Agent:   node.ID,
			Step:    workflow.StepComplete,
			Message: "stage completed",
		})
		slog.Debug("stage completed",
			"run", sc.RunID(),
			"stage", node.ID,
			"duration_ms", sr.DurationMs,
		)
	}

	// Only the engine writes namespaces, and each stage is committed once,
	// so a duplicate here is impossible for a validated definition.
	if err := sc.Write(node.ID, committed); err != nil {
		panic(err)
	}
	sr.Output, _ = sc.Output(node.ID)
	return sr
}

// route evaluates the outgoing edges of a completed stage. Static edges
// all fire; conditional edges fire first-match in declaration order.
// A stage whose conditional edges all decline is a definition defect and
// fails the run.
func (e *Engine) route(sc *SharedContext, st *runState, from string) error {
	var condLabels []string
	matched := false

	for _, edge := range e.def.OutgoingEdges(from) {
		if edge.When == nil {
			st.enable(edge.To)
			continue
		}
		condLabels = append(condLabels, edge.Label)
		if matched || !edge.When(sc) {
			continue
		}
		matched = true
		st.enable(edge.To)
		sc.Append(workflow.TraceEntry{
			Agent:    from,
			Step:     workflow.StepRoute,
			Message:  fmt.Sprintf("branch %q -> %s", edge.Label, edge.To),
			Decision: edge.Label,
		})
		slog.Debug("branch taken", "run", sc.RunID(), "stage", from, "label", edge.Label, "to", edge.To)
	}

	if len(condLabels) > 0 && !matched {
		return NewRoutingExhaustedError(sc.RunID(), from, condLabels)
	}
	return nil
}

// ensureDecision backstops the one-decision guarantee: if routing or the
// run deadline prevented the decision stage from ever running, its
// fallback record is committed as the decision.
func (e *Engine) ensureDecision(sc *SharedContext, res *RunResult) {
	if e.def.Decision == "" {
		return
	}
	if _, ok := sc.Output(e.def.Decision); ok {
		return
	}

	node, _ := e.def.Stage(e.def.Decision)
	if err := sc.Write(e.def.Decision, node.Fallback); err != nil {
		panic(err)
	}
	res.StageResults[node.ID] = StageResult{
		Stage:        node.ID,
		Error:        "stage never dispatched",
		FallbackUsed: true,
		Skipped:      true,
		Output:       node.Fallback.Clone(),
	}
	sc.Append(workflow.TraceEntry{
		Agent:    node.ID,
		Step:     workflow.StepDecision,
		Severity: workflow.SeverityWarning,
		Message:  "decision stage never ran; fallback decision substituted",
	})
	slog.Warn("fallback decision substituted", "run", sc.RunID(), "stage", node.ID)
}

// fail finalizes a run that hit a fatal defect. The partial trace and
// stage results are preserved for diagnosis.
func (e *Engine) fail(res *RunResult, sc *SharedContext, start time.Time, err error) *RunResult {
	res.Status = StatusFailed
	res.Success = false
	res.Outputs = sc.Snapshot()
	res.Trace = sc.Trace()
	res.Metadata.DurationMs = time.Since(start).Milliseconds()

	slog.Error("run failed", "run", res.RunID, "error", err)
	return res
}

// runState tracks which stages a run has enabled and completed.
//
// A stage with no incoming edges is dependency-driven: it is enabled from
// the start and waits only for its namespaces. A stage with incoming
// edges waits until routing takes one of them.
type runState struct {
	def     *workflow.Definition
	enabled map[string]bool
	done    map[string]bool
}

func newRunState(def *workflow.Definition) *runState {
	incoming := make(map[string]bool, len(def.Edges))
	for _, e := range def.Edges {
		if e.To != workflow.End {
			incoming[e.To] = true
		}
	}

	enabled := make(map[string]bool, len(def.Stages))
	for _, s := range def.Stages {
		if !incoming[s.ID] {
			enabled[s.ID] = true
		}
	}
	return &runState{
		def:     def,
		enabled: enabled,
		done:    make(map[string]bool, len(def.Stages)),
	}
}

// ready returns the stages that can be dispatched now, in declaration
// order: enabled, not yet run, every dependency committed.
func (st *runState) ready() []workflow.StageNode {
	var wave []workflow.StageNode
	for _, s := range st.def.Stages {
		if !st.enabled[s.ID] || st.done[s.ID] {
			continue
		}
		if st.depsSatisfied(s) {
			wave = append(wave, s)
		}
	}
	return wave
}

func (st *runState) depsSatisfied(s workflow.StageNode) bool {
	for _, dep := range s.DependsOn {
		if dep == workflow.InputsNamespace {
			continue
		}
		if !st.done[dep] {
			return false
		}
	}
	return true
}

func (st *runState) enable(id string) {
	if id == workflow.End {
		return
	}
	st.enabled[id] = true
}

func (st *runState) markDone(id string) {
	st.done[id] = true
}
