// Package batches runs groups of independent tasks on a shared worker pool and hands
// their outcomes back in the order the tasks finish.
//
// Building blocks
//   - pool.Pool: a fixed number of named workers with a soft admission gate
//     (Submit refuses work with pool.ErrPoolFull once every worker is busy and the
//     queue reached its capacity; Execute always accepts).
//   - Batch: a per-caller group of tasks. Submit forwards tasks to the pool through
//     Execute semantics; DrainAll and DrainEach pull the outcomes in completion order
//     until the batch is closed (Close or WithExpected) and fully drained.
//   - RunAll, RunStream, Map: one-call helpers built on Batch.
//
// Outcomes
// Every submitted task produces exactly one Outcome: its value, or its error. A
// failing or panicking task never aborts a drain; its outcome simply carries the
// error. Outcome.Index is the submission position within the batch.
//
// Cancellation
// SubmitContext binds a context to a task: a task whose context is done before a
// worker picks it up does not run and fails with ErrTaskCancelled. Drains take a
// context too; when it is done the drain returns early and the outcomes it did not
// deliver stay in the batch.
//
// Typical use
//
//	p, _ := pool.New(4, 4, 16, "query")
//	defer p.Shutdown(context.Background())
//
//	b, _ := batches.NewBatch[string](p)
//	for _, host := range hosts {
//		_ = b.Submit(queryTask(host))
//	}
//	_ = b.Close()
//	outcomes, err := b.DrainAll(ctx)
package batches
