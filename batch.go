package batches

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ygrebnov/batches/metrics"
	"github.com/ygrebnov/batches/pool"
)

// Executor runs units without admission control. *pool.Pool implements it.
type Executor interface {
	ExecuteContext(ctx context.Context, u pool.Unit) error
}

// State is the lifecycle stage of a Batch.
type State int

const (
	// StateOpen accepts submissions; no drain is running.
	StateOpen State = iota
	// StateDraining means a drain is running; submissions are still accepted and extend it.
	StateDraining
	// StateClosed is final: the batch was closed for submissions and every outcome was drained.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Batch collects the outcomes of the tasks submitted to it in the order they finish.
//
// Tasks go to the executor through Execute semantics: the pool's admission gate
// does not apply, the size of the batch is the caller's own admission policy.
// Each outcome is delivered exactly once, by DrainAll or DrainEach. A drain
// pulls until the batch was closed with Close (or reached the WithExpected size)
// and every submitted outcome was delivered. A drain that caught up with the
// submissions of an open batch keeps waiting for more, so Submit and a drain may
// interleave freely.
//
// Batch methods are safe for concurrent use; only one drain may run at a time.
type Batch[R any] struct {
	exec   Executor
	config config
	log    *zap.Logger
	m      batchInstruments
	queue  *completionQueue[R]

	mu        sync.Mutex // guards the fields below
	state     State
	sealed    bool
	submitted int
	drained   int
}

type batchInstruments struct {
	submitted metrics.Counter
	drained   metrics.Counter
	failed    metrics.Counter
	pending   metrics.UpDownCounter
	drainTime metrics.Histogram
}

// NewBatch creates an empty, open batch running its tasks on exec.
func NewBatch[R any](exec Executor, opts ...Option) (*Batch[R], error) {
	if exec == nil {
		return nil, ErrNilExecutor
	}
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	mp := cfg.Metrics
	return &Batch[R]{
		exec:   exec,
		config: cfg,
		log:    cfg.Logger.With(zap.String("batch", cfg.Name)),
		m: batchInstruments{
			submitted: mp.Counter("batch_tasks_submitted_total", metrics.WithDescription("tasks submitted to batches")),
			drained:   mp.Counter("batch_outcomes_drained_total", metrics.WithDescription("outcomes handed to drainers")),
			failed:    mp.Counter("batch_outcomes_failed_total", metrics.WithDescription("drained outcomes carrying an error")),
			pending: mp.UpDownCounter("batch_outcomes_pending",
				metrics.WithDescription("submitted tasks whose outcome was not drained yet")),
			drainTime: mp.Histogram("batch_drain_seconds",
				metrics.WithDescription("duration of drain calls"), metrics.WithUnit("seconds")),
		},
		queue: newCompletionQueue[R](),
	}, nil
}

// Submit adds t to the batch and hands it to the executor.
func (b *Batch[R]) Submit(t Task[R]) error {
	return b.SubmitContext(context.Background(), t)
}

// SubmitContext adds t to the batch; t runs with ctx. If ctx is done before a
// worker picks t up, t does not run and its outcome fails with ErrTaskCancelled.
//
// Submitting while a drain runs is allowed and extends that drain.
// Submitting after Close returns ErrBatchClosed.
func (b *Batch[R]) SubmitContext(ctx context.Context, t Task[R]) error {
	if t == nil {
		return ErrNilTask
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return ErrBatchClosed
	}

	var wrapErr func(error, int) error
	if b.config.ErrorTagging {
		name := b.config.Name
		wrapErr = func(err error, index int) error { return newTaskTaggedError(err, name, index) }
	}

	// The count moves only if the executor took the unit, so a drain never waits for an outcome that cannot come.
	if err := b.exec.ExecuteContext(ctx, track(t, b.submitted, b.queue, wrapErr)); err != nil {
		return err
	}
	b.submitted++
	b.m.submitted.Add(1)
	b.m.pending.Add(1)
	if b.config.Expected > 0 && b.submitted == b.config.Expected {
		b.sealLocked()
	}
	return nil
}

// Close ends submissions: later Submit calls return ErrBatchClosed and a drain
// returns once the outcomes of the tasks submitted so far were delivered.
// Close is idempotent and always returns nil.
func (b *Batch[R]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.sealed {
		b.sealLocked()
	}
	return nil
}

func (b *Batch[R]) sealLocked() {
	b.sealed = true
	if b.state == StateOpen && b.drained == b.submitted {
		b.state = StateClosed
	}
	// a drain waiting with nothing pending must re-check completion
	b.queue.wake()
}

// DrainAll blocks until the batch is closed and every submitted task's outcome
// arrived, and returns them in completion order. Failed outcomes are included and
// logged; they do not stop the drain.
//
// If ctx is done first, DrainAll returns the outcomes received so far and
// ctx.Err(). The remaining outcomes stay in the batch for a later drain.
// Draining a batch that is already closed and fully drained blocks until ctx is done.
func (b *Batch[R]) DrainAll(ctx context.Context) ([]Outcome[R], error) {
	var outcomes []Outcome[R]
	err := b.drain(ctx, func(o Outcome[R]) error {
		outcomes = append(outcomes, o)
		return nil
	})
	return outcomes, err
}

// DrainEach is DrainAll delivering each outcome to fn instead of collecting them.
// If fn returns an error the drain stops and returns it; outcomes not yet
// delivered stay in the batch.
func (b *Batch[R]) DrainEach(ctx context.Context, fn func(Outcome[R]) error) error {
	return b.drain(ctx, fn)
}

func (b *Batch[R]) drain(ctx context.Context, fn func(Outcome[R]) error) (err error) {
	closed, err := b.beginDrain()
	if err != nil {
		return err
	}
	if closed {
		// nothing will ever arrive
		<-ctx.Done()
		return ctx.Err()
	}
	started := time.Now()
	b.log.Debug("drain started", zap.Int("pending", b.Pending()))
	defer func() {
		b.m.drainTime.Record(time.Since(started).Seconds())
		if err != nil {
			b.log.Debug("drain interrupted", zap.Int("pending", b.Pending()), zap.Error(err))
		}
	}()

	for !b.finishDrainIfComplete() {
		o, ok := b.queue.tryTake()
		if !ok {
			if waitErr := b.queue.wait(ctx); waitErr != nil {
				b.abortDrain()
				return waitErr
			}
			continue
		}
		b.delivered(o)
		if cbErr := fn(o); cbErr != nil {
			b.abortDrain()
			return cbErr
		}
	}
	b.log.Debug("batch closed", zap.Int("outcomes", b.Len()))
	return nil
}

// beginDrain moves an open batch to StateDraining. It reports closed for a batch
// that has nothing left to deliver.
func (b *Batch[R]) beginDrain() (closed bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return true, nil
	case StateDraining:
		return false, ErrDrainInProgress
	}
	b.state = StateDraining
	return false, nil
}

// finishDrainIfComplete moves a closed batch to StateClosed once every submitted outcome was drained.
func (b *Batch[R]) finishDrainIfComplete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.sealed || b.drained < b.submitted {
		return false
	}
	b.state = StateClosed
	return true
}

func (b *Batch[R]) abortDrain() {
	b.mu.Lock()
	b.state = StateOpen
	b.mu.Unlock()
}

// delivered accounts for an outcome leaving the batch.
func (b *Batch[R]) delivered(o Outcome[R]) {
	b.mu.Lock()
	b.drained++
	b.mu.Unlock()

	b.m.drained.Add(1)
	b.m.pending.Add(-1)
	if o.Failed() {
		b.m.failed.Add(1)
		b.log.Warn("task failed",
			zap.Int("index", o.Index), zap.String("worker", o.Worker), zap.Duration("duration", o.Duration), zap.Error(o.Err))
	}
}

// Len returns the number of tasks submitted so far.
func (b *Batch[R]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitted
}

// Drained returns the number of outcomes handed out so far.
func (b *Batch[R]) Drained() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drained
}

// Pending returns the number of submitted tasks whose outcome was not drained yet.
func (b *Batch[R]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitted - b.drained
}

// Sealed reports whether Close was called or the WithExpected size was reached.
func (b *Batch[R]) Sealed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sealed
}

// State returns the current lifecycle stage.
func (b *Batch[R]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
