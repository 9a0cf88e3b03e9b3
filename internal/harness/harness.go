// Package harness executes YAML assessment scenarios against the real
// pipeline with deterministic collaborators: fixed run IDs, static
// providers, and scripted advisory responses. Scenario outcomes are
// validated by typed assertions and goldie golden snapshots.
package harness

import (
	"context"
	"fmt"

	"github.com/seedcap/lendflow/internal/assess"
	"github.com/seedcap/lendflow/internal/config"
	"github.com/seedcap/lendflow/internal/providers"
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/testutil"
)

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors lists the assertions that failed. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Report is the full pipeline outcome the assertions ran against.
	Report *assess.Report `json:"-"`
}

// AddError records a failed assertion and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Runner executes scenarios against a fixed configuration and provider set.
type Runner struct {
	cfg       *config.Config
	bank      providers.BankProvider
	community providers.CommunityProvider
}

// NewRunner creates a scenario runner. Nil providers default to the
// demo datasets so scenario files can reference the demo applicants.
func NewRunner(cfg *config.Config, bank providers.BankProvider, community providers.CommunityProvider) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	if bank == nil {
		bank = providers.DemoBank()
	}
	if community == nil {
		community = providers.DemoCommunity()
	}
	return &Runner{cfg: cfg, bank: bank, community: community}
}

// Run executes one scenario and evaluates its assertions. The returned
// error covers harness failures (bad definition, rejected inputs);
// assertion failures land in Result.Errors instead.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	deps := assess.Deps{Bank: r.bank, Community: r.community}
	if len(s.Advisor) > 0 {
		advisor := testutil.NewScriptedAdvisor()
		for task, payload := range s.Advisor {
			advisor.Script(task, payload)
		}
		deps.Advisor = advisor
	}

	assessor, err := assess.New(r.cfg, deps, testutil.NewFixedRunGenerator(s.RunID))
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	report, err := assessor.Run(ctx, record.Record(s.Inputs))
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	result := &Result{Pass: true, Report: report}
	for i, a := range s.Assertions {
		checkAssertion(result, i, &a)
	}
	return result, nil
}
