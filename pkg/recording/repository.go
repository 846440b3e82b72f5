package recording

import (
	"context"
	"time"
)

// Repository is the recording persistence contract.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Recording, error)

	// FindStale returns non-terminal recordings whose LastUpdatedAt is at
	// or before olderThan.
	FindStale(ctx context.Context, olderThan time.Time) ([]Recording, error)

	// HasActive reports whether the room has any non-terminal recording.
	HasActive(ctx context.Context, roomID string) (bool, error)

	// Save upserts the recording document.
	Save(ctx context.Context, rec *Recording) error

	// DeleteByRoom removes every recording of the room and reports how
	// many were removed.
	DeleteByRoom(ctx context.Context, roomID string) (int64, error)
}
