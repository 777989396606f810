// Package pool provides a fixed-size worker pool with a soft admission gate.
//
// A Pool runs a fixed number of named workers that consume units from an unbounded
// FIFO queue. Execute always enqueues. Submit first consults IsFull, which reports
// true once every worker is busy and the number of queued units reached the
// configured queue capacity; in that case Submit returns ErrPoolFull and the unit
// is not enqueued. The queue capacity is an admission threshold only: units
// enqueued through Execute may push the queue past it.
//
// Shutdown stops intake and waits for queued and running units to finish.
package pool

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"

	"github.com/ygrebnov/batches/metrics"
)

// Unit is a unit of work run by a pool worker. The context is the one the unit was
// enqueued with, annotated with the worker name (see WorkerName).
type Unit func(ctx context.Context)

// Stats is a consistent snapshot of the pool counters.
type Stats struct {
	Name          string
	MinWorkers    int
	Workers       int
	QueueCapacity int
	// Active is the number of workers that hold a unit.
	Active int
	// Queued is the number of accepted units no worker holds yet.
	Queued int
	Closed bool
}

type item struct {
	ctx      context.Context
	unit     Unit
	enqueued time.Time
}

// Pool is a fixed-size worker pool. Methods are safe for concurrent use.
type Pool struct {
	prefix        string
	minWorkers    int
	workers       int
	queueCapacity int
	config        config
	log           *zap.Logger
	m             instruments

	mu          sync.Mutex
	cond        *sync.Cond
	queue       fifo[item]
	outstanding int // accepted and not yet finished
	closed      bool

	runner   *ants.Pool
	workerWG sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

type instruments struct {
	accepted  metrics.Counter
	rejected  metrics.Counter
	completed metrics.Counter
	panicked  metrics.Counter
	inflight  metrics.UpDownCounter
	duration  metrics.Histogram
	queueWait metrics.Histogram
}

func newInstruments(p metrics.Provider) instruments {
	return instruments{
		accepted:  p.Counter("pool_units_accepted_total", metrics.WithDescription("units accepted by the pool")),
		rejected:  p.Counter("pool_units_rejected_total", metrics.WithDescription("units refused by admission control")),
		completed: p.Counter("pool_units_completed_total", metrics.WithDescription("units that finished running")),
		panicked:  p.Counter("pool_units_panicked_total", metrics.WithDescription("units that panicked")),
		inflight:  p.UpDownCounter("pool_units_inflight", metrics.WithDescription("accepted units not yet finished")),
		duration: p.Histogram("pool_unit_duration_seconds",
			metrics.WithDescription("unit run time"), metrics.WithUnit("seconds")),
		queueWait: p.Histogram("pool_queue_wait_seconds",
			metrics.WithDescription("time between acceptance and start"), metrics.WithUnit("seconds")),
	}
}

// New starts a pool of maxWorkers workers named after namePrefix.
//
// minWorkers must be in [1, maxWorkers]; it is reported by Stats but the pool
// always runs exactly maxWorkers workers. queueCapacity is the number of queued
// units at which Submit starts refusing work once all workers are busy.
func New(minWorkers, maxWorkers, queueCapacity int, namePrefix string, opts ...Option) (*Pool, error) {
	if err := validateSizes(minWorkers, maxWorkers, queueCapacity); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if namePrefix == "" {
		namePrefix = "worker"
	}

	p := &Pool{
		prefix:        namePrefix,
		minWorkers:    minWorkers,
		workers:       maxWorkers,
		queueCapacity: queueCapacity,
		config:        cfg,
		log:           cfg.Logger.With(zap.String("pool", namePrefix)),
		m:             newInstruments(cfg.Metrics),
		done:          make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	runner, err := ants.NewPool(maxWorkers,
		ants.WithPreAlloc(true),
		ants.WithDisablePurge(true),
		ants.WithPanicHandler(func(v any) {
			p.log.Error("worker loop panicked", zap.Any("panic", v))
		}),
	)
	if err != nil {
		return nil, err
	}
	p.runner = runner

	for seq := 1; seq <= maxWorkers; seq++ {
		w := &worker{pool: p, name: cfg.NameFunc(namePrefix, seq)}
		p.workerWG.Add(1)
		if err = runner.Submit(func() {
			defer p.workerWG.Done()
			w.loop()
		}); err != nil {
			p.workerWG.Done()
			_ = p.Shutdown(context.Background())
			return nil, err
		}
	}

	p.log.Debug("pool started",
		zap.Int("workers", maxWorkers), zap.Int("min_workers", minWorkers), zap.Int("queue_capacity", queueCapacity))
	return p, nil
}

func validateSizes(minWorkers, maxWorkers, queueCapacity int) error {
	switch {
	case maxWorkers < 1:
		return errorc.With(ErrInvalidConfig, errorc.String("max_workers", strconv.Itoa(maxWorkers)))
	case minWorkers < 1 || minWorkers > maxWorkers:
		return errorc.With(ErrInvalidConfig,
			errorc.String("min_workers", strconv.Itoa(minWorkers)), errorc.String("max_workers", strconv.Itoa(maxWorkers)))
	case queueCapacity < 0:
		return errorc.With(ErrInvalidConfig, errorc.String("queue_capacity", strconv.Itoa(queueCapacity)))
	}
	return nil
}

// Execute enqueues u without admission control. It fails only after Shutdown.
func (p *Pool) Execute(u Unit) error {
	return p.ExecuteContext(context.Background(), u)
}

// ExecuteContext is Execute with ctx handed to u when it runs.
// A unit whose ctx is cancelled while queued is still run, so it can report the cancellation.
func (p *Pool) ExecuteContext(ctx context.Context, u Unit) error {
	if u == nil {
		return ErrNilUnit
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.enqueueLocked(ctx, u)
	return nil
}

// Submit enqueues u unless the pool is full, in which case it returns ErrPoolFull.
//
// A worker frees its slot after the unit function returned. Anything the unit
// published before returning (a batch outcome, a closed channel) can therefore be
// observed slightly before the slot is free, and a Submit issued in that window
// may still be refused.
func (p *Pool) Submit(u Unit) error {
	return p.SubmitContext(context.Background(), u)
}

// SubmitContext is Submit with ctx handed to u when it runs.
// The capacity check and the enqueue happen atomically.
func (p *Pool) SubmitContext(ctx context.Context, u Unit) error {
	if u == nil {
		return ErrNilUnit
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if active, queued := p.countsLocked(); p.fullLocked(active, queued) {
		p.m.rejected.Add(1)
		return errorc.With(ErrPoolFull,
			errorc.String("pool", p.prefix),
			errorc.String("active", strconv.Itoa(active)),
			errorc.String("queued", strconv.Itoa(queued)),
		)
	}
	p.enqueueLocked(ctx, u)
	return nil
}

func (p *Pool) enqueueLocked(ctx context.Context, u Unit) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.queue.push(item{ctx: ctx, unit: u, enqueued: time.Now()})
	p.outstanding++
	p.m.accepted.Add(1)
	p.m.inflight.Add(1)
	p.cond.Signal()
}

// countsLocked derives the active and queued counts from outstanding.
// An idle worker is handed a unit the moment it is accepted, so active is never
// lower than min(outstanding, workers).
func (p *Pool) countsLocked() (active, queued int) {
	active = min(p.outstanding, p.workers)
	return active, p.outstanding - active
}

func (p *Pool) fullLocked(active, queued int) bool {
	return active == p.workers && queued >= p.queueCapacity
}

// IsFull reports whether every worker is busy and the queue reached its capacity.
// A unit counts as busy until its function returned and the worker released it,
// see Submit.
func (p *Pool) IsFull() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fullLocked(p.countsLocked())
}

// ActiveWorkerCount returns the number of busy workers.
func (p *Pool) ActiveWorkerCount() int {
	return p.Stats().Active
}

// QueueSize returns the number of accepted units waiting for a worker.
func (p *Pool) QueueSize() int {
	return p.Stats().Queued
}

// Stats returns a consistent snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	active, queued := p.countsLocked()
	return Stats{
		Name:          p.prefix,
		MinWorkers:    p.minWorkers,
		Workers:       p.workers,
		QueueCapacity: p.queueCapacity,
		Active:        active,
		Queued:        queued,
		Closed:        p.closed,
	}
}

// Shutdown stops intake and waits until queued and running units finished.
// If ctx is done first it returns ctx.Err(); the workers keep draining in the background.
// Shutdown is idempotent.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cond.Broadcast()
		p.log.Debug("pool shutting down", zap.Int("outstanding", p.outstanding))
	}
	p.mu.Unlock()

	p.stopOnce.Do(func() {
		go func() {
			p.workerWG.Wait()
			if p.runner != nil {
				p.runner.Release()
			}
			p.log.Debug("pool stopped")
			close(p.done)
		}()
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once every worker exited after Shutdown.
func (p *Pool) Done() <-chan struct{} { return p.done }

// next blocks until a unit is available. It returns false once the pool is closed and drained.
func (p *Pool) next() (item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.queue.len() == 0 && !p.closed {
		p.cond.Wait()
	}
	return p.queue.pop()
}

func (p *Pool) finish() {
	p.mu.Lock()
	p.outstanding--
	p.mu.Unlock()
	p.m.inflight.Add(-1)
	p.m.completed.Add(1)
}
