package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seedcap/lendflow/internal/engine"
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/workflow"
)

// ErrRunNotFound reports a run ID the store has no row for.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID         string
	DefinitionID  string
	Status        engine.RunStatus
	Category      string
	AdjustedScore float64
	DurationMs    int64
	CreatedAt     time.Time
}

// StoredRun is a fully hydrated persisted run.
type StoredRun struct {
	Summary  RunSummary
	Decision record.Record
	Outputs  map[string]record.Record
	Stages   []engine.StageResult
	Trace    []workflow.TraceEntry
}

// ListRuns returns the most recent runs, newest first, capped at limit.
// A non-positive limit means 50.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, definition_id, status, decision_category, adjusted_score, duration_ms, created_at
		FROM runs
		ORDER BY created_at DESC, run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return summaries, nil
}

// GetRun returns one persisted run with its outputs, stage results and
// trace. Returns ErrRunNotFound if the run was never saved.
func (s *Store) GetRun(ctx context.Context, runID string) (*StoredRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, definition_id, status, decision_category, adjusted_score, duration_ms, created_at, decision
		FROM runs
		WHERE run_id = ?
	`, runID)

	var (
		sum          RunSummary
		createdAt    string
		decisionJSON string
	)
	err := row.Scan(&sum.RunID, &sum.DefinitionID, &sum.Status, &sum.Category,
		&sum.AdjustedScore, &sum.DurationMs, &createdAt, &decisionJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run %q: %w", runID, err)
	}
	sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("run %q: parse created_at: %w", runID, err)
	}

	run := &StoredRun{Summary: sum, Outputs: map[string]record.Record{}}
	if err := json.Unmarshal([]byte(decisionJSON), &run.Decision); err != nil {
		return nil, fmt.Errorf("run %q: decode decision: %w", runID, err)
	}

	if err := s.readStages(ctx, runID, run); err != nil {
		return nil, err
	}
	run.Trace, err = s.ReadTrace(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) readStages(ctx context.Context, runID string, run *StoredRun) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, success, fallback_used, skipped, error, duration_ms, output
		FROM stage_outputs
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query stages for %q: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sr      engine.StageResult
			outJSON string
		)
		if err := rows.Scan(&sr.Stage, &sr.Success, &sr.FallbackUsed,
			&sr.Skipped, &sr.Error, &sr.DurationMs, &outJSON); err != nil {
			return fmt.Errorf("scan stage for %q: %w", runID, err)
		}
		var out record.Record
		if err := json.Unmarshal([]byte(outJSON), &out); err != nil {
			return fmt.Errorf("run %q: decode output %s: %w", runID, sr.Stage, err)
		}
		sr.Output = out
		run.Outputs[sr.Stage] = out
		run.Stages = append(run.Stages, sr)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate stages for %q: %w", runID, err)
	}
	return nil
}

// ReadTrace returns a run's trace entries in sequence order. Returns an
// empty slice, not nil, when the run has no rows.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]workflow.TraceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, agent, step, message, severity, method, reasoning, decision
		FROM trace_entries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace for %q: %w", runID, err)
	}
	defer rows.Close()

	trace := []workflow.TraceEntry{}
	for rows.Next() {
		var (
			entry    workflow.TraceEntry
			decision string
		)
		if err := rows.Scan(&entry.Seq, &entry.Agent, &entry.Step, &entry.Message,
			&entry.Severity, &entry.Method, &entry.Reasoning, &decision); err != nil {
			return nil, fmt.Errorf("scan trace for %q: %w", runID, err)
		}
		if decision != "" {
			entry.Decision = decision
		}
		trace = append(trace, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace for %q: %w", runID, err)
	}
	return trace, nil
}

func scanSummary(rows *sql.Rows) (RunSummary, error) {
	var (
		sum       RunSummary
		createdAt string
	)
	if err := rows.Scan(&sum.RunID, &sum.DefinitionID, &sum.Status, &sum.Category,
		&sum.AdjustedScore, &sum.DurationMs, &createdAt); err != nil {
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return RunSummary{}, fmt.Errorf("parse created_at: %w", err)
	}
	return sum, nil
}
