package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seedcap/lendflow/internal/assess"
	"github.com/seedcap/lendflow/internal/engine"
	"github.com/seedcap/lendflow/internal/providers"
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/store"
)

// AssessOptions holds flags for the assess command.
type AssessOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// NewAssessCommand creates the assess command.
func NewAssessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assess <inputs-file>",
		Short: "Run one loan assessment",
		Long: `Run the assessment pipeline on an application record.

The inputs file is a JSON object with the application fields. The demo
bank and community providers resolve the applicant's transaction history
and neighborhood profile. Without an advisory model configured, every
stage scores with its deterministic estimate.

Exit codes:
  0 - Assessment completed (any decision category)
  1 - Assessment failed to reach a decision
  2 - Command error (bad inputs file, database error, etc.)

Examples:
  lendflow assess ./application.json
  lendflow assess ./application.json --db ./lendflow.db
  lendflow assess ./application.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the run to this SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "fix the run ID (defaults to a UUIDv7)")

	return cmd
}

func runAssess(opts *AssessOptions, inputsFile string, cmd *cobra.Command) error {
	inputs, err := readInputs(inputsFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	var runIDs engine.RunIDGenerator = engine.UUIDv7Generator{}
	if opts.RunID != "" {
		runIDs = engine.NewFixedGenerator(opts.RunID)
	}

	deps := assess.Deps{
		Bank:      providers.DemoBank(),
		Community: providers.DemoCommunity(),
	}
	assessor, err := assess.New(cfg, deps, runIDs)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}

	slog.Info("assessment starting", "applicant", inputs.String("applicantId"))
	report, err := assessor.Run(cmd.Context(), inputs)
	if err != nil {
		return WrapExitError(ExitFailure, "assessment failed", err)
	}
	slog.Info("assessment finished",
		"run_id", report.RunID,
		"status", report.Status,
		"category", report.Decision.Category,
		"adjusted_score", report.Decision.AdjustedScore)

	if opts.Database != "" {
		if err := persistRun(cmd, opts.Database, report); err != nil {
			return err
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printReport(cmd, report)
	return nil
}

// readInputs loads the application record from a JSON file.
func readInputs(path string) (record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read inputs file", err)
	}
	var inputs record.Record
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, WrapExitError(ExitCommandError, "inputs file is not a JSON object", err)
	}
	return inputs, nil
}

func persistRun(cmd *cobra.Command, dbPath string, report *assess.Report) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.SaveRun(cmd.Context(), assess.DefinitionID, report.Result); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist run", err)
	}
	slog.Info("run persisted", "run_id", report.RunID, "db", dbPath)
	return nil
}

func printReport(cmd *cobra.Command, report *assess.Report) {
	out := cmd.OutOrStdout()
	dec := report.Decision

	fmt.Fprintf(out, "Run:      %s (%s)\n", report.RunID, report.Status)
	fmt.Fprintf(out, "Decision: %s (adjusted score %.1f)\n", dec.Category, dec.AdjustedScore)
	fmt.Fprintf(out, "Path:     %s\n", dec.Explain.DecisionPath)
	fmt.Fprintf(out, "Reason:   %s\n", dec.Rationale)

	if dec.LoanTerms != nil {
		t := dec.LoanTerms
		fmt.Fprintf(out, "Terms:    $%d over %d months at %.1f%% ($%d/month)\n",
			t.LoanAmount, t.TermMonths, t.InterestRate, t.MonthlyPayment)
	}

	if fallbacks := report.Result.FallbacksUsed(); len(fallbacks) > 0 {
		fmt.Fprintf(out, "Degraded: %s ran on fallback output\n", strings.Join(fallbacks, ", "))
	}

	if report.Plan != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Improvement plan (target score %.0f, timeline %s):\n",
			report.Plan.TargetScore, report.Plan.Timeline)
		for _, rec := range report.Plan.Recommendations {
			fmt.Fprintf(out, "  [%s] %s\n", rec.Priority, rec.Issue)
			fmt.Fprintf(out, "         %s\n", rec.Action)
		}
	}
}
