package queue

import "errors"

var (
	// ErrTerminal reports an attempt to mutate a job that is already done or failed.
	ErrTerminal = errors.New("render job already finished")
	// ErrNotFound reports a mutation on a job id the store does not know.
	ErrNotFound = errors.New("render job not found")
)
