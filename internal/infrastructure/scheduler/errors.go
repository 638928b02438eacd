package scheduler

import "errors"

var (
	// ErrTriggerNotRunning is returned when a manual run is requested on a stopped trigger
	ErrTriggerNotRunning = errors.New("billing trigger is not running")

	// ErrInvalidConfig is returned when trigger configuration is invalid
	ErrInvalidConfig = errors.New("invalid billing trigger configuration")
)
