package pool

import "errors"

const Namespace = "pool"

var (
	ErrPoolFull      = errors.New(Namespace + ": capacity exceeded, unit not accepted")
	ErrClosed        = errors.New(Namespace + ": pool is shut down")
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
	ErrNilUnit       = errors.New(Namespace + ": nil unit")
)
