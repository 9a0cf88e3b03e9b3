// Package testutil provides deterministic test doubles: a fixed run ID
// generator for stable golden files and a scripted advisory client.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/seedcap/lendflow/internal/scoring"
)

// ScriptedAdvisor plays back canned advisory responses keyed by task.
// Tasks without a script fail the call, which routes the scorer to its
// deterministic estimate; that makes the degraded path easy to stage.
//
// Thread-safety: all methods are safe for concurrent use.
type ScriptedAdvisor struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
}

// NewScriptedAdvisor creates an advisor with no scripts. Every call
// fails until a script is added.
func NewScriptedAdvisor() *ScriptedAdvisor {
	return &ScriptedAdvisor{
		responses: map[string]string{},
		errs:      map[string]error{},
	}
}

// Script sets the raw JSON payload returned for a task.
func (a *ScriptedAdvisor) Script(task, payload string) *ScriptedAdvisor {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[task] = payload
	delete(a.errs, task)
	return a
}

// ScriptScore sets a well-formed advisory response for a task.
func (a *ScriptedAdvisor) ScriptScore(task string, score float64, reasoning string) *ScriptedAdvisor {
	return a.Script(task, fmt.Sprintf(`{"score": %g, "reasoning": %q}`, score, reasoning))
}

// Fail makes calls for a task return the given error.
func (a *ScriptedAdvisor) Fail(task string, err error) *ScriptedAdvisor {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs[task] = err
	delete(a.responses, task)
	return a
}

// Advise implements scoring.Advisor.
func (a *ScriptedAdvisor) Advise(ctx context.Context, req scoring.AdvisoryRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, req.Task)

	if err, ok := a.errs[req.Task]; ok {
		return nil, err
	}
	if payload, ok := a.responses[req.Task]; ok {
		return []byte(payload), nil
	}
	return nil, fmt.Errorf("no script for task %q", req.Task)
}

// Calls returns the tasks advised so far, in call order.
func (a *ScriptedAdvisor) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}
