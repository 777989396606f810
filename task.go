package batches

import (
	"context"
	"fmt"
)

// Task is a unit of work producing a value of type R or an error.
// Use TaskFunc / TaskValue / TaskError to adapt common function shapes.
//
// Example:
//
//	t := TaskFunc(func(ctx context.Context) (int, error) { return 42, nil })
//	_ = t
type Task[R any] func(context.Context) (R, error)

// TaskFunc adapts func(ctx) (R, error) to Task[R].
func TaskFunc[R any](fn func(context.Context) (R, error)) Task[R] { return Task[R](fn) }

// TaskValue adapts func(ctx) R to Task[R].
func TaskValue[R any](fn func(context.Context) R) Task[R] {
	return func(ctx context.Context) (R, error) { return fn(ctx), nil }
}

// TaskError adapts func(ctx) error to Task[R]; the value is always the zero R.
func TaskError[R any](fn func(context.Context) error) Task[R] {
	return func(ctx context.Context) (R, error) { var zero R; return zero, fn(ctx) }
}

// Run executes t, converting a panic into ErrTaskPanicked.
// A task whose ctx is already done does not start and fails with ErrTaskCancelled.
func (t Task[R]) Run(ctx context.Context) (result R, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%w: %w", ErrTaskCancelled, ctxErr)
	}

	defer func() {
		if p := recover(); p != nil {
			var zero R
			result, err = zero, fmt.Errorf("%w: %v", ErrTaskPanicked, p)
		}
	}()

	return t(ctx)
}
