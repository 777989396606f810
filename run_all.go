package batches

import (
	"context"
	"errors"
)

// RunAll runs tasks as one batch on exec and returns every outcome in completion order.
//
// Semantics:
// - Outcomes are ordered by completion, not by input position; Outcome.Index gives the input position.
// - A failing task does not stop the others; the returned error is errors.Join of all task errors.
// - If ctx is done, tasks not yet started fail with ErrTaskCancelled; RunAll returns
//   what it collected and ctx.Err() joined with the task errors.
// - If exec refuses a task (e.g. pool.ErrClosed), RunAll stops submitting, drains what was
//   accepted and reports the refusal.
func RunAll[R any](ctx context.Context, exec Executor, tasks []Task[R], opts ...Option) ([]Outcome[R], error) {
	b, err := NewBatch[R](exec, opts...)
	if err != nil {
		return nil, err
	}

	var submitErr error
	for _, t := range tasks {
		if submitErr = b.SubmitContext(ctx, t); submitErr != nil {
			break
		}
	}

	_ = b.Close()

	outcomes, drainErr := b.DrainAll(ctx)
	errs := make([]error, 0, len(outcomes)+2)
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	errs = append(errs, submitErr, drainErr)
	return outcomes, errors.Join(errs...)
}
