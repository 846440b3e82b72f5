// Package recording implements the recording lock and staleness lifecycle.
// Starting a recording takes the room's recording lock before the media
// engine is touched, status updates keep a liveness timestamp fresh, and two
// sweeps clean up after crashed holders: one aborts recordings that went
// silent, one releases locks whose recording record is missing or terminal.
package recording

import (
	"errors"
	"fmt"
	"time"
)

// Status is the recording lifecycle state.
type Status string

const (
	StatusStarting Status = "starting"
	StatusActive   Status = "active"
	StatusEnding   Status = "ending"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
	StatusAborted  Status = "aborted"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusStarting, StatusActive, StatusEnding, StatusComplete, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// Recording is one recording attempt. EgressID is the media engine's
// identifier for the same recording; LastUpdatedAt is the liveness signal
// the staleness sweep judges by.
type Recording struct {
	ID            string    `bson:"_id" json:"recordingId"`
	RoomID        string    `bson:"roomId" json:"roomId"`
	Status        Status    `bson:"status" json:"status"`
	EgressID      string    `bson:"egressId,omitempty" json:"egressId,omitempty"`
	StartedAt     time.Time `bson:"startedAt" json:"startedAt"`
	LastUpdatedAt time.Time `bson:"lastUpdatedAt" json:"lastUpdatedAt"`
}

var (
	// ErrRecordingNotFound reports an unknown recording id.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrRecordingInProgress rejects a start while the room's recording
	// lock is held by another recording.
	ErrRecordingInProgress = errors.New("recording already in progress for room")
	// ErrInvalidStatus rejects unknown lifecycle states.
	ErrInvalidStatus = errors.New("invalid recording status")
	// ErrRecordingFinished rejects operations on a terminal recording.
	ErrRecordingFinished = errors.New("recording already finished")
)

func recordingError(kind error, message string) error {
	if message == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, message)
}
