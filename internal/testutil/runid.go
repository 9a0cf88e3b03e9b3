package testutil

// FixedRunGenerator returns the same run ID every time.
//
// Unlike engine.FixedGenerator, which hands out IDs in sequence and
// panics on exhaustion, this generator never runs out. Harness scenarios
// use it so every execution of a scenario shares one stable run ID and
// golden files stay byte-identical.
//
// Thread-safety: FixedRunGenerator is stateless and safe for concurrent use.
type FixedRunGenerator struct {
	id string
}

// NewFixedRunGenerator creates a generator for the given run ID. An
// empty id defaults to "test-run-default".
func NewFixedRunGenerator(id string) *FixedRunGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements engine.RunIDGenerator.
func (g *FixedRunGenerator) Generate() string {
	return g.id
}
