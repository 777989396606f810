package batches

import "errors"

const Namespace = "batches"

var (
	ErrBatchClosed     = errors.New(Namespace + ": batch is closed")
	ErrDrainInProgress = errors.New(Namespace + ": another drain is in progress")
	ErrNilExecutor     = errors.New(Namespace + ": nil executor")
	ErrNilTask         = errors.New(Namespace + ": nil task")
	ErrTaskCancelled   = errors.New(Namespace + ": task cancelled before start")
	ErrTaskPanicked    = errors.New(Namespace + ": task execution panicked")
	ErrInvalidConfig   = errors.New(Namespace + ": invalid configuration")
)
