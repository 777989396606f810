package batches

import "context"

// Map applies fn to every item on exec and returns the successful values in completion order.
// The error is errors.Join of the failures, see RunAll.
func Map[T, R any](
	ctx context.Context,
	exec Executor,
	items []T,
	fn func(context.Context, T) (R, error),
	opts ...Option,
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	tasks := make([]Task[R], 0, len(items))
	for _, item := range items {
		tasks = append(tasks, func(c context.Context) (R, error) { return fn(c, item) })
	}
	outcomes, err := RunAll[R](ctx, exec, tasks, opts...)
	return Values(outcomes), err
}
