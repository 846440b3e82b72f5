package lock

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument classifies invalid caller input.
	ErrInvalidArgument = errors.New("lock invalid argument")
	// ErrNotInitialized classifies use of an uninitialized provider.
	ErrNotInitialized = errors.New("lock provider not initialized")
	// ErrRetryable classifies transient store failures. Acquire fails
	// closed with this class when the coordination store is unreachable.
	ErrRetryable = errors.New("lock retryable error")
)

func lockError(kind error, message string) error {
	if message == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, message)
}
