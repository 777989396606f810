package batches

import (
	"context"

	"go.uber.org/zap"
)

// RunStream submits every task read from in to one batch on exec and streams the
// outcomes in completion order on the returned channel.
//
// Lifecycle:
//   - Intake stops when in is closed, ctx is done, or exec refuses a task. After a
//     refusal the remaining tasks read from in are discarded so producers do not block.
//   - The batch is closed when intake stops.
//   - The output channel is closed once intake stopped and every accepted task's
//     outcome was delivered, or as soon as ctx is done.
//   - The consumer must keep reading until the channel is closed.
//
// A non-nil error is returned only for setup failures (invalid options, nil exec).
func RunStream[R any](ctx context.Context, exec Executor, in <-chan Task[R], opts ...Option) (<-chan Outcome[R], error) {
	b, err := NewBatch[R](exec, opts...)
	if err != nil {
		return nil, err
	}
	if _, err = b.beginDrain(); err != nil {
		return nil, err
	}

	out := make(chan Outcome[R])
	go func() {
		defer close(out)

		intake := in
		for intake != nil || b.Pending() > 0 {
			select {
			case <-ctx.Done():
				b.abortDrain()
				return

			case t, ok := <-intake:
				if !ok {
					intake = nil
					_ = b.Close()
					continue
				}
				if err := b.SubmitContext(ctx, t); err != nil {
					b.log.Warn("stream intake stopped", zap.Error(err))
					go discard(in)
					intake = nil
					_ = b.Close()
				}

			case <-b.queue.ready:
				for {
					o, ok := b.queue.tryTake()
					if !ok {
						break
					}
					b.delivered(o)
					select {
					case out <- o:
					case <-ctx.Done():
						b.abortDrain()
						return
					}
				}
			}
		}
		b.finishDrainIfComplete()
	}()

	return out, nil
}

func discard[T any](in <-chan T) {
	for range in {
	}
}
