// Package media declares the contract toward the media engine. The engine
// itself (LiveKit) lives outside this codebase; the lifecycle engines only
// need presence checks, room teardown, and recording control.
package media

import "context"

// Service is the media-engine collaborator.
type Service interface {
	// IsRoomEmpty reports whether the room currently has zero participants.
	IsRoomEmpty(ctx context.Context, roomID string) (bool, error)

	// DeleteRoom tears the room down in the media engine.
	DeleteRoom(ctx context.Context, roomID string) error

	// StartRecording asks the engine to begin recording the room and
	// returns the engine-side recording identifier.
	StartRecording(ctx context.Context, roomID string) (string, error)

	// StopRecording asks the engine to stop an in-progress recording.
	StopRecording(ctx context.Context, recordingID string) error
}

// RoomObserver receives push notifications from the media engine. The
// engine calls RoomFinished when the last participant has left a room.
type RoomObserver interface {
	RoomFinished(ctx context.Context, roomID string)
}
