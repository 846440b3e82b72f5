package room

import (
	"context"
	"errors"
	"time"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/config"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/media"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/scheduler"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/webhook"
)

// GCTaskName is the scheduled-task name of the room garbage collector.
const GCTaskName = "room-gc"

// RecordingDeleter removes all recordings belonging to a room. Implemented
// by the recording service; injected as an interface to keep the room
// engine free of a package cycle.
type RecordingDeleter interface {
	DeleteByRoom(ctx context.Context, roomID string) error
}

// Service drives room auto-deletion.
type Service struct {
	rooms      Repository
	recordings RecordingDeleter
	media      media.Service
	notifier   webhook.Notifier
	log        logger.Logger
	config     config.RoomsConfig
}

// NewService wires the room lifecycle engine. notifier and recordings may
// be nil; notifications are then skipped and recordings left untouched.
func NewService(
	rooms Repository,
	recordings RecordingDeleter,
	mediaService media.Service,
	notifier webhook.Notifier,
	log logger.Logger,
	cfg config.RoomsConfig,
) (*Service, error) {
	if rooms == nil {
		return nil, errors.New("room repository is required")
	}
	if mediaService == nil {
		return nil, errors.New("media service is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if notifier == nil {
		notifier = webhook.NopNotifier{}
	}
	return &Service{
		rooms:      rooms,
		recordings: recordings,
		media:      mediaService,
		notifier:   notifier,
		log:        log,
		config:     cfg,
	}, nil
}

// RegisterGC registers the periodic sweep with the scheduler.
func (s *Service) RegisterGC(sched *scheduler.Scheduler, runImmediately bool) error {
	return sched.Register(scheduler.Task{
		Name:           GCTaskName,
		Kind:           scheduler.KindCron,
		Period:         s.config.GCInterval,
		RunImmediately: runImmediately,
		Action:         s.RunSweep,
	})
}

// ValidateAutoDeletionDate enforces the minimum distance into the future
// at the point a deletion date is accepted, not during the sweep.
func (s *Service) ValidateAutoDeletionDate(date, now time.Time) error {
	if date.Before(now.Add(s.config.AutoDeletionDateFloor)) {
		return roomError(ErrDeletionDateTooSoon,
			"must be at least "+s.config.AutoDeletionDateFloor.String()+" from now")
	}
	return nil
}

// ScheduleAutoDeletion validates and persists a room's auto-deletion date.
func (s *Service) ScheduleAutoDeletion(ctx context.Context, roomID string, date time.Time) error {
	if err := s.ValidateAutoDeletionDate(date, time.Now().UTC()); err != nil {
		return err
	}
	r, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	r.AutoDeletionDate = &date
	return s.rooms.Save(ctx, r)
}

// RunSweep is one garbage-collection pass. Rooms are processed
// independently: one room failing never aborts the rest, and re-running
// the sweep immediately produces the same end state.
func (s *Service) RunSweep(ctx context.Context) error {
	now := time.Now().UTC()
	expired, err := s.rooms.FindExpired(ctx, now)
	if err != nil {
		return err
	}

	for _, r := range expired {
		if r.AutoDeletionDate == nil {
			continue
		}
		if err := s.processExpired(ctx, r); err != nil {
			recordSweepOutcome(sweepFailed)
			s.log.Error("room sweep entry failed", "room", r.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) processExpired(ctx context.Context, r Room) error {
	empty, err := s.media.IsRoomEmpty(ctx, r.ID)
	if err != nil {
		return err
	}

	if !empty {
		// Occupied: defer to the reactive path. Re-marking is harmless.
		if r.MarkedForDeletion {
			return nil
		}
		if err := s.rooms.SetMarkedForDeletion(ctx, r.ID); err != nil {
			return err
		}
		recordSweepOutcome(sweepMarked)
		s.log.Info("room marked for deletion, participants still present", "room", r.ID)
		return nil
	}

	return s.deleteRoom(ctx, r.ID)
}

// RoomFinished implements the media engine's push contract: when a
// marked room empties, it is deleted immediately instead of waiting for
// the next sweep.
func (s *Service) RoomFinished(ctx context.Context, roomID string) {
	r, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			s.log.Error("room lookup failed on finished signal", "room", roomID, "error", err)
		}
		return
	}
	if !r.MarkedForDeletion {
		return
	}
	if err := s.deleteRoom(ctx, roomID); err != nil {
		s.log.Error("reactive room deletion failed", "room", roomID, "error", err)
	}
}

func (s *Service) deleteRoom(ctx context.Context, roomID string) error {
	if err := s.media.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	if err := s.rooms.Delete(ctx, roomID); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			// Another instance or an earlier sweep got here first.
			return nil
		}
		return err
	}

	if s.config.DeletionPolicy == config.DeleteRecordings && s.recordings != nil {
		if err := s.recordings.DeleteByRoom(ctx, roomID); err != nil {
			s.log.Error("deleting room recordings failed", "room", roomID, "error", err)
		}
	}

	recordSweepOutcome(sweepDeleted)
	s.log.Info("room deleted", "room", roomID)

	event := webhook.Event{
		Type:      webhook.EventMeetingEnded,
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.Warn("webhook notification failed", "room", roomID, "error", err)
	}
	return nil
}
