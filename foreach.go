package batches

import "context"

// ForEach applies fn to each item on exec as one batch and returns errors.Join of
// the failures, or nil when every call succeeded. See RunAll for cancellation.
func ForEach[T any](ctx context.Context, exec Executor, items []T, fn func(context.Context, T) error, opts ...Option) error {
	if len(items) == 0 {
		return nil
	}
	tasks := make([]Task[struct{}], 0, len(items))
	for _, item := range items {
		tasks = append(tasks, TaskError[struct{}](func(c context.Context) error { return fn(c, item) }))
	}
	_, err := RunAll(ctx, exec, tasks, opts...)
	return err
}
