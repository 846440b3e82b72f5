package webhook

import (
	"context"
	"time"
)

// Event types emitted by the lifecycle engines.
const (
	EventMeetingEnded     = "meetingEnded"
	EventRecordingUpdated = "recordingUpdated"
)

// Event is one webhook payload.
type Event struct {
	Type      string         `json:"event"`
	RoomID    string         `json:"roomId,omitempty"`
	Timestamp time.Time      `json:"creationDate"`
	Data      map[string]any `json:"data,omitempty"`
}

// Notifier delivers events to configured webhook consumers. The transport
// implementation is external; engines treat delivery as best effort and
// never fail an operation because a notification could not be sent.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
