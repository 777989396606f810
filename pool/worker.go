package pool

import (
	"context"
	"fmt"
	"runtime/pprof"
	"time"

	"go.uber.org/zap"
)

type workerNameKey struct{}

// WorkerName returns the name of the worker running the unit that received ctx.
func WorkerName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(workerNameKey{}).(string)
	return name, ok
}

type worker struct {
	pool *Pool
	name string
}

// loop runs units until the pool is closed and its queue is empty.
// The loop carries a pprof "worker" label so profiles attribute samples to the worker name.
func (w *worker) loop() {
	w.pool.log.Debug("worker started", zap.String("worker", w.name))
	pprof.Do(context.Background(), pprof.Labels("worker", w.name), func(context.Context) {
		for {
			it, ok := w.pool.next()
			if !ok {
				break
			}
			w.run(it)
		}
	})
	w.pool.log.Debug("worker stopped", zap.String("worker", w.name))
}

func (w *worker) run(it item) {
	p := w.pool
	defer p.finish()

	ctx := context.WithValue(it.ctx, workerNameKey{}, w.name)

	if lim := p.config.Limiter; lim != nil {
		// a cancelled wait still runs the unit so it can observe ctx
		_ = lim.Wait(ctx)
	}

	started := time.Now()
	p.m.queueWait.Record(started.Sub(it.enqueued).Seconds())
	defer func() {
		p.m.duration.Record(time.Since(started).Seconds())
	}()

	if err := safeRun(ctx, it.unit); err != nil {
		p.m.panicked.Add(1)
		p.log.Error("unit panicked", zap.String("worker", w.name), zap.Error(err))
	}
}

// safeRun runs u and converts a panic into an error.
func safeRun(ctx context.Context, u Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: unit panicked: %v", Namespace, r)
		}
	}()
	u(ctx)
	return nil
}
