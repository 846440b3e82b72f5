package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation classifies invalid task definitions and schedules.
	ErrValidation = errors.New("scheduler validation error")
	// ErrNotFound classifies operations on unknown task names.
	ErrNotFound = errors.New("scheduler task not found")
	// ErrClosed classifies use of a stopped scheduler.
	ErrClosed = errors.New("scheduler closed")
)

func schedulerError(kind error, message string) error {
	if message == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, message)
}
