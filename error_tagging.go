package batches

import (
	"errors"
	"fmt"
)

// TaskMetaError exposes where a failed task came from.
type TaskMetaError interface {
	error
	Unwrap() error
	TaskIndex() int
	BatchName() string
}

type taskTaggedError struct {
	err   error
	batch string
	index int
}

func newTaskTaggedError(err error, batch string, index int) error {
	if err == nil {
		return nil
	}
	return &taskTaggedError{err: err, batch: batch, index: index}
}

func (e *taskTaggedError) Error() string     { return e.err.Error() }
func (e *taskTaggedError) Unwrap() error     { return e.err }
func (e *taskTaggedError) TaskIndex() int    { return e.index }
func (e *taskTaggedError) BatchName() string { return e.batch }

func (e *taskTaggedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "task(batch=%s,index=%d): %+v", e.batch, e.index, e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractTaskIndex returns the submission index carried by err, if any.
func ExtractTaskIndex(err error) (int, bool) {
	var tme TaskMetaError
	if errors.As(err, &tme) {
		return tme.TaskIndex(), true
	}
	return 0, false
}
