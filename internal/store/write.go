package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/seedcap/lendflow/internal/engine"
	"github.com/seedcap/lendflow/internal/record"
)

// SaveRun persists a finished run: its row, every stage result with its
// committed output, and the full trace, in one transaction.
//
// Records are serialized to canonical JSON so byte-identical runs
// produce byte-identical rows. Saving the same run ID twice is
// idempotent; the first write wins.
func (s *Store) SaveRun(ctx context.Context, definitionID string, res *engine.RunResult) error {
	decisionJSON, err := record.MarshalCanonical(res.Decision)
	if err != nil {
		return fmt.Errorf("save run %s: encode decision: %w", res.RunID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run %s: begin tx: %w", res.RunID, err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, definition_id, status, decision_category, adjusted_score, decision, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		res.RunID,
		definitionID,
		string(res.Status),
		res.Decision.String("category"),
		res.Decision.Float("adjustedScore"),
		string(decisionJSON),
		res.Metadata.DurationMs,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", res.RunID, err)
	}

	for pos, stage := range stageOrder(res) {
		sr := res.StageResults[stage]
		outJSON, err := record.MarshalCanonical(res.Outputs[stage])
		if err != nil {
			return fmt.Errorf("save run %s: encode output %s: %w", res.RunID, stage, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stage_outputs
			(run_id, stage, position, success, fallback_used, skipped, error, duration_ms, output)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, stage) DO NOTHING
		`,
			res.RunID, stage, pos,
			sr.Success, sr.FallbackUsed, sr.Skipped,
			sr.Error, sr.DurationMs, string(outJSON),
		)
		if err != nil {
			return fmt.Errorf("save run %s: stage %s: %w", res.RunID, stage, err)
		}
	}

	for _, entry := range res.Trace {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trace_entries
			(run_id, seq, agent, step, message, severity, method, reasoning, decision)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`,
			res.RunID, entry.Seq, entry.Agent, entry.Step,
			entry.Message, entry.Severity, entry.Method, entry.Reasoning,
			encodeTraceDecision(entry.Decision),
		)
		if err != nil {
			return fmt.Errorf("save run %s: trace seq %d: %w", res.RunID, entry.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run %s: commit: %w", res.RunID, err)
	}
	return nil
}

// stageOrder lists stages in dispatch order, then any stage that only
// exists as a backstopped result, so positions stay deterministic.
func stageOrder(res *engine.RunResult) []string {
	order := append([]string(nil), res.Metadata.StagesRun...)
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		seen[id] = true
	}
	var rest []string
	for id := range res.StageResults {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// encodeTraceDecision flattens the free-form decision value to a column.
// Labels and categories are plain strings; anything else is stored as JSON.
func encodeTraceDecision(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprintf("%v", d)
		}
		return string(raw)
	}
}
