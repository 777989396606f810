package batches

import "context"

// MapStream reads items from in, applies fn to each on exec and streams the
// outcomes in completion order. Outcome.Index is the position of the item in
// the input stream. Lifecycle and errors are those of RunStream.
func MapStream[T, R any](
	ctx context.Context,
	exec Executor,
	in <-chan T,
	fn func(context.Context, T) (R, error),
	opts ...Option,
) (<-chan Outcome[R], error) {
	tasks := make(chan Task[R])
	out, err := RunStream(ctx, exec, tasks, opts...)
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(tasks)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-in:
				if !ok {
					return
				}
				select {
				case tasks <- func(c context.Context) (R, error) { return fn(c, item) }:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
