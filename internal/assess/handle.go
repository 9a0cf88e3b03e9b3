package assess

import (
	"context"

	"github.com/seedcap/lendflow/internal/record"
)

// RunHandle tracks an assessment running in the background.
type RunHandle struct {
	done   chan struct{}
	report *Report
	err    error
}

// StartRun launches an assessment and returns immediately. The run is
// bounded by its own run timeout; cancelling ctx aborts it early.
func (a *Assessor) StartRun(ctx context.Context, inputs record.Record) *RunHandle {
	h := &RunHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.report, h.err = a.Run(ctx, inputs)
	}()
	return h
}

// Done is closed when the run has finished.
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes or ctx expires. The run itself
// keeps going if Wait's context expires first; call Wait again to pick
// the result up later.
func (h *RunHandle) Wait(ctx context.Context) (*Report, error) {
	select {
	case <-h.done:
		return h.report, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
