package room

import (
	"context"
	"time"
)

// Repository is the persistence collaborator for rooms. The engine never
// touches physical storage directly.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Room, error)

	// FindExpired returns rooms whose AutoDeletionDate has passed at the
	// given instant. Rooms without an AutoDeletionDate are never returned.
	// Implementations may include already-marked rooms; the sweep is
	// idempotent over them.
	FindExpired(ctx context.Context, now time.Time) ([]Room, error)

	Save(ctx context.Context, r *Room) error
	SetMarkedForDeletion(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
