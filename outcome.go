package batches

import "time"

// Outcome is what a finished task produced: either Value or a non-nil Err.
type Outcome[R any] struct {
	Value R
	Err   error

	// Index is the task's submission sequence number within its batch, starting at 0.
	Index int
	// Worker names the pool worker that ran the task.
	Worker string
	// Duration is the task run time.
	Duration time.Duration
}

// Failed reports whether the task failed.
func (o Outcome[R]) Failed() bool { return o.Err != nil }

// Values returns the values of successful outcomes, keeping their order.
func Values[R any](outcomes []Outcome[R]) []R {
	values := make([]R, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Failed() {
			values = append(values, o.Value)
		}
	}
	return values
}
