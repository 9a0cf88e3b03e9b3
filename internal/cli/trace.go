package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seedcap/lendflow/internal/store"
	"github.com/seedcap/lendflow/internal/workflow"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Agent    string // optional - filter to a single agent
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Print the audit trail for a run",
		Long: `Print the audit trail for a persisted assessment run.

Entries appear in commit order: which agent acted, what it concluded,
the method it used (rule-based, hybrid, llm) and its reasoning.

Examples:
  lendflow trace 0192d3a8-... --db ./lendflow.db
  lendflow trace run-42 --db ./lendflow.db --agent auditor
  lendflow trace run-42 --db ./lendflow.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "filter to a single agent")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	run, err := st.GetRun(cmd.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
		}
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}

	trace := run.Trace
	if opts.Agent != "" {
		trace = filterTrace(trace, opts.Agent)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"runId":  runID,
			"status": run.Summary.Status,
			"trace":  trace,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, %s %.1f)\n", runID,
		run.Summary.Status, run.Summary.Category, run.Summary.AdjustedScore)
	if len(trace) == 0 {
		fmt.Fprintln(out, "No trace entries.")
		return nil
	}
	for _, e := range trace {
		fmt.Fprintf(out, "%4d  %-12s %-10s %s\n", e.Seq, e.Agent, e.Step, e.Message)
		if e.Method != "" {
			fmt.Fprintf(out, "      method=%s\n", e.Method)
		}
		if e.Reasoning != "" {
			fmt.Fprintf(out, "      %s\n", indentReasoning(e.Reasoning))
		}
	}
	return nil
}

func filterTrace(trace []workflow.TraceEntry, agent string) []workflow.TraceEntry {
	out := make([]workflow.TraceEntry, 0, len(trace))
	for _, e := range trace {
		if e.Agent == agent {
			out = append(out, e)
		}
	}
	return out
}

func indentReasoning(s string) string {
	return strings.ReplaceAll(s, "\n", "\n      ")
}
