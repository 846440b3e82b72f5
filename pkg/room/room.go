// Package room implements the room auto-deletion lifecycle: a periodic
// garbage-collection sweep over rooms whose auto-deletion date has passed,
// plus a reactive path that deletes a marked room the moment it empties.
package room

import (
	"errors"
	"fmt"
	"time"
)

// Room is the lifecycle-relevant subset of a meeting room. The full room
// document is owned by the API layer; this engine only reads and writes
// the deletion fields.
type Room struct {
	ID   string `bson:"_id" json:"roomId"`
	Name string `bson:"name" json:"roomName"`

	// AutoDeletionDate, when set, makes the room eligible for deletion
	// once the instant passes and no participants remain. Rooms without
	// one are never touched by the garbage collector.
	AutoDeletionDate *time.Time `bson:"autoDeletionDate,omitempty" json:"autoDeletionDate,omitempty"`

	// MarkedForDeletion records that the deletion date passed while
	// participants were still present. Marked rooms are deleted
	// reactively when the media engine reports them empty.
	MarkedForDeletion bool `bson:"markedForDeletion" json:"markedForDeletion"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

var (
	// ErrRoomNotFound reports an unknown room id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrDeletionDateTooSoon rejects auto-deletion dates closer than the
	// configured minimum distance into the future.
	ErrDeletionDateTooSoon = errors.New("auto deletion date is too soon")
)

func roomError(kind error, message string) error {
	if message == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, message)
}
