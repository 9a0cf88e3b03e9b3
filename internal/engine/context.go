package engine

import (
	"sync"

	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

// SharedContext is the blackboard one run's stages communicate through.
//
// It holds namespaced output records plus the append-only trace. Each
// namespace is write-once: the first write commits it permanently and any
// second write is rejected. Reads of committed namespaces return deep
// copies, so no stage can mutate another stage's output after the fact.
//
// Thread-safety: all methods are safe for concurrent use. Writes to
// distinct namespaces do not conflict beyond the short internal lock;
// there is no cross-namespace transaction to wait on.
type SharedContext struct {
	runID string
	clock *Clock

	mu      sync.RWMutex
	outputs map[string]record.Record
	order   []string // namespaces in commit order
	trace   []workflow.TraceEntry
}

// NewSharedContext creates an empty shared context for one run.
func NewSharedContext(runID string, clock *Clock) *SharedContext {
	return &SharedContext{
		runID:   runID,
		clock:   clock,
		outputs: make(map[string]record.Record),
	}
}

// RunID returns the run this context belongs to.
func (sc *SharedContext) RunID() string {
	return sc.runID
}

// Write commits a record under a namespace. The record is deep-copied on
// the way in, so the caller keeps no handle to the committed data.
//
// Returns a DUPLICATE_NAMESPACE RunError if the namespace was already
// written. The first write always wins; the engine treats a duplicate as
// a wiring defect and fails the run.
func (sc *SharedContext) Write(namespace string, rec record.Record) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if _, exists := sc.outputs[namespace]; exists {
		return NewDuplicateNamespaceError(sc.runID, namespace)
	}
	sc.outputs[namespace] = rec.Clone()
	sc.order = append(sc.order, namespace)
	return nil
}

// Output returns a copy of the record committed under a namespace, and
// whether the namespace has been written at all. Implements workflow.View.
func (sc *SharedContext) Output(namespace string) (record.Record, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	rec, ok := sc.outputs[namespace]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Read returns the record committed under a namespace, or a
// NAMESPACE_NOT_READY RunError if no stage has written it yet.
func (sc *SharedContext) Read(namespace string) (record.Record, error) {
	rec, ok := sc.Output(namespace)
	if !ok {
		return nil, NewNotReadyError(sc.runID, namespace)
	}
	return rec, nil
}

// Namespaces returns the committed namespaces in commit order.
func (sc *SharedContext) Namespaces() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	out := make([]string, len(sc.order))
	copy(out, sc.order)
	return out
}

// Snapshot returns a deep copy of every committed namespace.
func (sc *SharedContext) Snapshot() map[string]record.Record {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	out := make(map[string]record.Record, len(sc.outputs))
	for ns, rec := range sc.outputs {
		out[ns] = rec.Clone()
	}
	return out
}

// Append adds an entry to the trace, stamping it with the next logical
// seq. Returns the assigned seq. The trace is append-only; nothing ever
// rewrites or removes an entry.
func (sc *SharedContext) Append(entry workflow.TraceEntry) int64 {
	entry.Seq = sc.clock.Next()
	if entry.Severity == "" {
		entry.Severity = workflow.SeverityInfo
	}

	sc.mu.Lock()
	sc.trace = append(sc.trace, entry)
	sc.mu.Unlock()

	return entry.Seq
}

// Trace returns a copy of the trace in append order.
func (sc *SharedContext) Trace() []workflow.TraceEntry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	out := make([]workflow.TraceEntry, len(sc.trace))
	copy(out, sc.trace)
	return out
}
