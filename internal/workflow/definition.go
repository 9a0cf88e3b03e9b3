// Package workflow defines the static shape of an assessment pipeline: the
// stage nodes, their dependency and routing edges, and the structural
// validation applied before a definition is handed to the execution engine.
package workflow

import (
	"context"
	"time"

	"github.com/seedcap/lendflow/internal/record"
)

// End is the routing target that terminates a branch of the pipeline.
// An edge pointing at End enables nothing; the run completes when every
// enabled stage has produced a result.
const End = "__end__"

// InputsNamespace is the reserved namespace the engine writes the caller's
// run inputs into before the entry stage is dispatched. Stages may list it
// in DependsOn like any stage namespace; no stage may use it as its ID.
const InputsNamespace = "inputs"

// View is read-only access to the shared run state, as exposed to routing
// predicates. Implemented by engine.SharedContext.
//
// Predicates must only read namespaces belonging to stages that have already
// completed; the engine guarantees this for declared dependencies and for the
// source stage of the edge being evaluated.
type View interface {
	// Output returns the record written to a namespace, and whether the
	// namespace has been written at all.
	Output(namespace string) (record.Record, bool)
}

// RunContext is the state a running stage sees: reads of committed
// namespaces plus the append-only trace. Implemented by
// engine.SharedContext.
type RunContext interface {
	View

	// Read returns the record under a namespace, or an error if no stage
	// has written it yet.
	Read(namespace string) (record.Record, error)

	// Append adds an entry to the run's audit trail and returns the
	// logical seq assigned to it.
	Append(entry TraceEntry) int64

	// RunID identifies the current run.
	RunID() string
}

// Stage is one unit of analysis work. Implementations wrap an analysis
// capability (deterministic calculation, provider call, advisory call)
// behind a uniform contract.
//
// Run must respect ctx cancellation: the engine enforces the node's timeout
// through ctx and substitutes the node's fallback output if Run has not
// returned by then. Returning an error is an ordinary, recovered outcome:
// the engine logs it and substitutes the fallback.
type Stage interface {
	Run(ctx context.Context, rc RunContext) (record.Record, error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc func(ctx context.Context, rc RunContext) (record.Record, error)

// Run implements Stage.
func (f StageFunc) Run(ctx context.Context, rc RunContext) (record.Record, error) {
	return f(ctx, rc)
}

// Predicate is a pure routing condition evaluated against the run state
// after an edge's source stage completes. Predicates must not mutate state.
type Predicate func(View) bool

// Edge connects a completed stage to its successor.
//
// An edge with a nil When is static: it is always taken, alongside every
// other static edge of the same source (fan-out). Edges with a non-nil When
// are conditional: they are evaluated in declaration order and exactly the
// first matching edge is taken. A source whose conditional edges all decline
// is a definition bug and fails the run.
type Edge struct {
	From string
	To   string
	When Predicate

	// Label names the condition in traces and validation output. Required
	// for conditional edges so the audit trail can say why a branch ran.
	Label string
}

// StageNode declares one stage of the pipeline.
type StageNode struct {
	// ID is the stage's namespace: the stage writes exactly one record,
	// under this name, into the shared context.
	ID string

	// DependsOn lists the namespaces this stage reads. The engine does not
	// dispatch the stage until every listed namespace has been written.
	DependsOn []string

	// Timeout bounds one execution of the stage. Zero means the engine's
	// configured default.
	Timeout time.Duration

	// OutputSchema describes the record the stage must produce. Both real
	// and fallback outputs are validated against it.
	OutputSchema *record.Schema

	// Fallback is the fully-formed record substituted when the stage fails
	// or times out. It must satisfy OutputSchema, so downstream stages
	// never observe a missing key.
	Fallback record.Record

	// Runner executes the stage.
	Runner Stage
}

// Definition is an immutable description of a pipeline: stages plus edges.
// Definitions are validated once, then shared freely across runs.
type Definition struct {
	ID     string
	Stages []StageNode
	Edges  []Edge

	// Decision names the stage whose output record is the run's final
	// decision. The engine guarantees this namespace is written on every
	// non-failed run, substituting the stage's fallback if necessary.
	Decision string

	// RequiredInputs lists the keys every run's input record must carry.
	// The engine rejects a run whose inputs are missing any of them.
	RequiredInputs []string
}

// Stage returns the node with the given ID, if present.
func (d *Definition) Stage(id string) (StageNode, bool) {
	for _, s := range d.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return StageNode{}, false
}

// Entry returns the entry stage: the unique stage with no incoming edges
// whose only dependency, if any, is the reserved inputs namespace. Valid
// definitions have exactly one; Validate enforces this, so Entry on a
// validated definition always succeeds.
func (d *Definition) Entry() (StageNode, bool) {
	incoming := d.incomingTargets()
	var entry StageNode
	found := false
	for _, s := range d.Stages {
		if !dependsOnlyOnInputs(s) || incoming[s.ID] {
			continue
		}
		if found {
			return StageNode{}, false
		}
		entry = s
		found = true
	}
	return entry, found
}

// dependsOnlyOnInputs reports whether the stage reads nothing but the
// reserved inputs namespace. Such stages are entry candidates.
func dependsOnlyOnInputs(s StageNode) bool {
	for _, dep := range s.DependsOn {
		if dep != InputsNamespace {
			return false
		}
	}
	return true
}

// OutgoingEdges returns the edges whose source is the given stage, in
// declaration order.
func (d *Definition) OutgoingEdges(from string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

func (d *Definition) incomingTargets() map[string]bool {
	targets := make(map[string]bool, len(d.Edges))
	for _, e := range d.Edges {
		if e.To != End {
			targets[e.To] = true
		}
	}
	return targets
}
