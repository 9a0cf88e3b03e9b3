package workflow

// Analysis methods recorded in trace entries. A stage that combined a
// deterministic calculation with an advisory model call reports hybrid;
// a stage that fell back to pure calculation reports rule-based.
const (
	MethodRuleBased = "rule-based"
	MethodHybrid    = "hybrid"
	MethodLLM       = "llm"
)

// Trace entry severities. Info is the default; warning marks fallback
// substitutions, timeouts, and other degraded outcomes.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Well-known step labels appended by the engine itself. Stages append
// entries with their own step labels between these.
const (
	StepRunStart = "run_start"
	StepStart    = "start"
	StepComplete = "complete"
	StepFallback = "fallback"
	StepRoute    = "route"
	StepDecision = "decision"
)

// TraceEntry is one record in a run's append-only audit trail.
//
// Entries are stamped with a logical seq at append time, giving the trail
// a total order even when parallel stages append concurrently. Relative
// order between entries of concurrently running stages is not meaningful;
// order within one stage is.
type TraceEntry struct {
	Seq      int64  `json:"seq"`
	Agent    string `json:"agent"`
	Step     string `json:"step"`
	Message  string `json:"message"`
	Severity string `json:"severity"`

	// Method records how the agent reached its conclusion: rule-based,
	// hybrid, or llm. Empty for purely structural entries (routing,
	// lifecycle).
	Method string `json:"method,omitempty"`

	// Reasoning is the agent's free-text explanation, when it has one.
	Reasoning string `json:"reasoning,omitempty"`

	// Decision is the agent's conclusion for this entry: a score, a
	// category, a route label. Kept loosely typed so every agent can
	// record its own shape.
	Decision any `json:"decision,omitempty"`
}
