package async

import "errors"

var (
	// ErrShuttingDown is returned when a task is submitted after shutdown
	// has begun.
	ErrShuttingDown = errors.New("async: runner is shutting down")

	// ErrShutdownTimeout is returned when in-flight tasks do not finish
	// before the shutdown context expires.
	ErrShutdownTimeout = errors.New("async: shutdown timed out with tasks still running")
)
