package pool

import "errors"

// ErrClosed is returned when an operation is attempted on a closed pool.
var ErrClosed = errors.New("pool is closed")
