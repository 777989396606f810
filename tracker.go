package batches

import (
	"context"
	"sync"
	"time"

	"github.com/ygrebnov/batches/pool"
)

// completionQueue is the per-batch queue finished outcomes are pushed on.
// Any number of workers may push; one drainer takes. It is unbounded so a
// worker never waits for the drainer.
type completionQueue[R any] struct {
	mu    sync.Mutex
	items []Outcome[R]
	// ready holds a token whenever items may be non-empty.
	ready chan struct{}
}

func newCompletionQueue[R any]() *completionQueue[R] {
	return &completionQueue[R]{ready: make(chan struct{}, 1)}
}

func (q *completionQueue[R]) push(o Outcome[R]) {
	q.mu.Lock()
	q.items = append(q.items, o)
	q.mu.Unlock()
	q.wake()
}

// wake leaves a token for the drainer without blocking.
func (q *completionQueue[R]) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *completionQueue[R]) tryTake() (Outcome[R], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Outcome[R]{}, false
	}
	o := q.items[0]
	q.items[0] = Outcome[R]{}
	q.items = q.items[1:]
	return o, true
}

// wait blocks until the queue was woken or ctx is done. A wake-up does not
// guarantee an outcome; callers re-check with tryTake.
func (q *completionQueue[R]) wait(ctx context.Context) error {
	select {
	case <-q.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track wraps t into a pool unit that, once t returned, pushes the outcome on q.
// The push is the last thing the unit does, so a drainer never sees an outcome
// before it is final.
func track[R any](t Task[R], index int, q *completionQueue[R], wrapErr func(error, int) error) pool.Unit {
	return func(ctx context.Context) {
		worker, _ := pool.WorkerName(ctx)
		started := time.Now()
		v, err := t.Run(ctx)
		if err != nil && wrapErr != nil {
			err = wrapErr(err, index)
		}
		q.push(Outcome[R]{
			Value:    v,
			Err:      err,
			Index:    index,
			Worker:   worker,
			Duration: time.Since(started),
		})
	}
}
