package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seedcap/lendflow/internal/assess"
	"github.com/seedcap/lendflow/internal/harness"
	"github.com/seedcap/lendflow/internal/providers"
	"github.com/seedcap/lendflow/internal/workflow"
)

// ValidationResult holds the outcome of the validate command.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Errors    []workflow.ValidationError `json:"errors,omitempty"`
	Scenarios int                        `json:"scenarios,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [scenarios-dir]",
		Short: "Validate the pipeline and configuration",
		Long: `Validate the wired pipeline definition against the structural rules:
acyclic dependencies, resolvable routing, schema-satisfying fallbacks
and a reachable decision stage.

With --config, the threshold overrides are unified with the defaults
first, so a bad override file fails here instead of at assessment time.
With a scenarios directory, every scenario file must parse and carry
well-formed assertions.

Exit codes:
  0 - Everything valid
  1 - Validation errors found
  2 - Command error (unreadable config or scenarios)

Examples:
  lendflow validate
  lendflow validate --config ./overrides.cue
  lendflow validate ./scenarios`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenariosDir := ""
			if len(args) == 1 {
				scenariosDir = args[0]
			}
			return runValidate(rootOpts, scenariosDir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scenariosDir string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	deps := assess.Deps{
		Bank:      providers.DemoBank(),
		Community: providers.DemoCommunity(),
	}
	result := ValidationResult{
		Errors: workflow.Validate(assess.Definition(cfg, deps)),
	}
	result.Valid = len(result.Errors) == 0

	if result.Valid && scenariosDir != "" {
		if _, statErr := os.Stat(scenariosDir); os.IsNotExist(statErr) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
		}
		scenarios, loadErr := harness.LoadDir(scenariosDir)
		if loadErr != nil {
			return WrapExitError(ExitCommandError, "failed to load scenarios", loadErr)
		}
		result.Scenarios = len(scenarios)
	}

	if opts.Format == "json" {
		if result.Valid {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		first := result.Errors[0]
		if err := writeJSONError(cmd.OutOrStdout(), first.Code, first.Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	out := cmd.OutOrStdout()
	if result.Valid {
		fmt.Fprintln(out, "✓ Pipeline definition valid")
		if scenariosDir != "" {
			fmt.Fprintf(out, "✓ %d scenario(s) well-formed\n", result.Scenarios)
		}
		return nil
	}

	fmt.Fprintln(out, "✗ Validation failed")
	fmt.Fprintln(out)
	for _, verr := range result.Errors {
		fmt.Fprintf(out, "  %s\n", verr.Error())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
