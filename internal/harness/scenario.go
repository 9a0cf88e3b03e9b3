package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end assessment test case: fixed inputs,
// optional scripted advisory responses, and assertions over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID fixes the run identity so golden files stay byte-identical.
	// Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Inputs is the application record passed to the pipeline.
	Inputs map[string]any `yaml:"inputs"`

	// Advisor maps advisory tasks to raw JSON payloads. Tasks without a
	// script fall back to the deterministic estimate; an empty map runs
	// the whole pipeline without an advisor.
	Advisor map[string]string `yaml:"advisor,omitempty"`

	// Assertions validate the decision, routing and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a finished run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Category is the expected decision (used by "decision").
	Category string `yaml:"category,omitempty"`

	// AdjustedScore is the expected adjusted score (used by "decision",
	// checked only when non-nil).
	AdjustedScore *float64 `yaml:"adjusted_score,omitempty"`

	// Status is the expected run status (used by "status").
	Status string `yaml:"status,omitempty"`

	// Label is the expected routing label (used by "route_taken").
	Label string `yaml:"label,omitempty"`

	// Stage names a stage (used by "stage_ran", "fallback_used",
	// "output_contains").
	Stage string `yaml:"stage,omitempty"`

	// Agent and Step select trace entries (used by "trace_contains").
	Agent string `yaml:"agent,omitempty"`
	Step  string `yaml:"step,omitempty"`

	// Expect contains expected output field values, subset match
	// (used by "output_contains").
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertDecision       = "decision"
	AssertStatus         = "status"
	AssertRouteTaken     = "route_taken"
	AssertStageRan       = "stage_ran"
	AssertFallbackUsed   = "fallback_used"
	AssertTraceContains  = "trace_contains"
	AssertOutputContains = "output_contains"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently skipping checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in a directory, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	sort.Strings(matches)

	scenarios := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Inputs) == 0 {
		return fmt.Errorf("inputs map is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.RunID == "" {
		s.RunID = "test-run-default"
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertDecision:
		if a.Category == "" {
			return fmt.Errorf("assertions[%d]: category is required for decision", index)
		}
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	case AssertRouteTaken:
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for route_taken", index)
		}
	case AssertStageRan, AssertFallbackUsed:
		if a.Stage == "" {
			return fmt.Errorf("assertions[%d]: stage is required for %s", index, a.Type)
		}
	case AssertTraceContains:
		if a.Agent == "" && a.Step == "" {
			return fmt.Errorf("assertions[%d]: agent or step is required for trace_contains", index)
		}
	case AssertOutputContains:
		if a.Stage == "" {
			return fmt.Errorf("assertions[%d]: stage is required for output_contains", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for output_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
