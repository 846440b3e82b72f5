package recording

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/config"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/media"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/mutex"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/scheduler"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/webhook"
)

// Scheduled-task names of the recording cleanup sweeps.
const (
	StaleSweepTaskName  = "recording-stale-sweep"
	OrphanSweepTaskName = "recording-orphan-sweep"
)

// stuckTimeout bounds the background work done when a start attempt times out.
const stuckTimeout = 5 * time.Second

type pendingStart struct {
	roomID string
	timer  *time.Timer
}

// Service drives the recording lifecycle. Each instance remembers the locks
// and stuck-start timers it created locally; cross-instance cleanup goes
// through forced release, which the sweeps are the only callers of.
type Service struct {
	recordings Repository
	locks      *mutex.Service
	media      media.Service
	notifier   webhook.Notifier
	log        logger.Logger
	config     config.RecordingsConfig

	mu     sync.Mutex
	starts map[string]*pendingStart // by recording id
	held   map[string]*mutex.Lock   // by room id
	closed bool
}

// NewService wires the recording lifecycle engine. notifier may be nil.
func NewService(
	recordings Repository,
	locks *mutex.Service,
	mediaService media.Service,
	notifier webhook.Notifier,
	log logger.Logger,
	cfg config.RecordingsConfig,
) (*Service, error) {
	if recordings == nil {
		return nil, errors.New("recording repository is required")
	}
	if locks == nil {
		return nil, errors.New("mutex service is required")
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
		recordings: recordings,
		locks:      locks,
		media:      mediaService,
		notifier:   notifier,
		log:        log,
		config:     cfg,
		starts:     map[string]*pendingStart{},
		held:       map[string]*mutex.Lock{},
	}, nil
}

// RegisterSweeps registers the staleness and orphaned-lock sweeps with the
// scheduler.
func (s *Service) RegisterSweeps(sched *scheduler.Scheduler) error {
	if err := sched.Register(scheduler.Task{
		Name:   StaleSweepTaskName,
		Kind:   scheduler.KindCron,
		Period: s.config.StaleSweepInterval,
		Action: s.RunStaleSweep,
	}); err != nil {
		return err
	}
	return sched.Register(scheduler.Task{
		Name:   OrphanSweepTaskName,
		Kind:   scheduler.KindCron,
		Period: s.config.OrphanSweepInterval,
		Action: s.RunOrphanSweep,
	})
}

// Start begins a recording in the room. The room's recording lock is taken
// before the media engine is instructed; a held lock means another recording
// is in progress and the start is rejected. A lock-store failure rejects the
// start too, never proceeding unlocked.
func (s *Service) Start(ctx context.Context, roomID string) (*Recording, error) {
	held, acquired, err := s.locks.AcquireRecording(ctx, roomID, s.config.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		recordLifecycleEvent(eventStartRejected)
		return nil, recordingError(ErrRecordingInProgress, roomID)
	}

	now := time.Now().UTC()
	rec := &Recording{
		ID:            uuid.NewString(),
		RoomID:        roomID,
		Status:        StatusStarting,
		StartedAt:     now,
		LastUpdatedAt: now,
	}
	if err := s.recordings.Save(ctx, rec); err != nil {
		s.releaseLockFor(ctx, roomID, held)
		return nil, err
	}

	egressID, err := s.media.StartRecording(ctx, roomID)
	if err != nil {
		rec.Status = StatusFailed
		rec.LastUpdatedAt = time.Now().UTC()
		if saveErr := s.recordings.Save(ctx, rec); saveErr != nil {
			s.log.Error("recording failure could not be persisted", "recording", rec.ID, "error", saveErr)
		}
		s.releaseLockFor(ctx, roomID, held)
		return nil, err
	}
	rec.EgressID = egressID
	if err := s.recordings.Save(ctx, rec); err != nil {
		s.log.Error("recording egress id could not be persisted", "recording", rec.ID, "error", err)
	}

	s.trackStart(rec.ID, roomID, held)
	recordLifecycleEvent(eventStarted)
	s.log.Info("recording started", "recording", rec.ID, "room", roomID, "egress", egressID)
	return rec, nil
}

// Stop asks the media engine to end the recording. The lock stays held
// until the engine confirms a terminal state through HandleStatusUpdate.
func (s *Service) Stop(ctx context.Context, recordingID string) error {
	rec, err := s.recordings.FindByID(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		return recordingError(ErrRecordingFinished, recordingID)
	}

	if err := s.media.StopRecording(ctx, rec.EgressID); err != nil {
		return err
	}
	return s.HandleStatusUpdate(ctx, recordingID, StatusEnding)
}

// HandleStatusUpdate persists a lifecycle transition reported by the media
// engine. Every transition refreshes LastUpdatedAt; terminal ones release
// the room's recording lock. Repeating a terminal state is a no-op.
func (s *Service) HandleStatusUpdate(ctx context.Context, recordingID string, status Status) error {
	if !status.Valid() {
		return recordingError(ErrInvalidStatus, string(status))
	}

	rec, err := s.recordings.FindByID(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		if status == rec.Status {
			return nil
		}
		return recordingError(ErrRecordingFinished, recordingID)
	}

	if status != StatusStarting {
		s.dropPendingStart(recordingID)
	}

	rec.Status = status
	rec.LastUpdatedAt = time.Now().UTC()
	if err := s.recordings.Save(ctx, rec); err != nil {
		return err
	}

	if status.Terminal() {
		s.releaseRoomLock(ctx, rec.RoomID)
		recordLifecycleEvent(eventFinished)
		s.notify(ctx, rec)
		s.log.Info("recording finished", "recording", rec.ID, "room", rec.RoomID, "status", string(status))
	}
	return nil
}

// RunStaleSweep force-aborts non-terminal recordings that have gone silent
// for longer than the stale threshold and releases their room locks.
// Recordings are processed independently.
func (s *Service) RunStaleSweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.config.StaleThreshold)
	stale, err := s.recordings.FindStale(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, rec := range stale {
		rec := rec
		rec.Status = StatusAborted
		rec.LastUpdatedAt = time.Now().UTC()
		if err := s.recordings.Save(ctx, &rec); err != nil {
			s.log.Error("stale recording could not be aborted", "recording", rec.ID, "error", err)
			continue
		}
		s.dropPendingStart(rec.ID)
		s.releaseRoomLock(ctx, rec.RoomID)
		recordLifecycleEvent(eventAbortedStale)
		s.notify(ctx, &rec)
		s.log.Warn("stale recording aborted", "recording", rec.ID, "room", rec.RoomID,
			"lastUpdatedAt", rec.LastUpdatedAt)
	}
	return nil
}

// RunOrphanSweep releases recording locks that no live recording record
// backs anymore. Locks younger than the orphan grace window are left alone:
// their recording document may still be on its way to the store.
func (s *Service) RunOrphanSweep(ctx context.Context) error {
	heldLocks, err := s.locks.HeldRecordingLocks(ctx)
	if err != nil {
		return err
	}

	for roomID, remaining := range heldLocks {
		age := s.config.LockTTL - remaining
		if age < s.config.OrphanGrace {
			continue
		}
		active, err := s.recordings.HasActive(ctx, roomID)
		if err != nil {
			s.log.Error("orphan sweep lookup failed", "room", roomID, "error", err)
			continue
		}
		if active {
			continue
		}
		if err := s.locks.ForceRelease(ctx, mutex.RecordingKey(roomID)); err != nil {
			s.log.Error("orphaned recording lock could not be released", "room", roomID, "error", err)
			continue
		}
		s.forgetRoom(roomID)
		recordLifecycleEvent(eventOrphanRelease)
		s.log.Warn("orphaned recording lock released", "room", roomID, "lockAge", age)
	}
	return nil
}

// DeleteByRoom removes every recording of the room and its recording lock.
// The room engine calls this while garbage-collecting a room.
func (s *Service) DeleteByRoom(ctx context.Context, roomID string) error {
	deleted, err := s.recordings.DeleteByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.locks.ForceRelease(ctx, mutex.RecordingKey(roomID)); err != nil {
		s.log.Warn("recording lock cleanup failed for deleted room", "room", roomID, "error", err)
	}
	s.forgetRoom(roomID)
	if deleted > 0 {
		s.log.Info("room recordings deleted", "room", roomID, "count", deleted)
	}
	return nil
}

// Close stops outstanding stuck-start timers. Held locks are left to their
// TTL; the orphan sweep of a surviving instance reclaims them sooner.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, pending := range s.starts {
		pending.timer.Stop()
	}
	s.starts = map[string]*pendingStart{}
	s.held = map[string]*mutex.Lock{}
	return nil
}

func (s *Service) trackStart(recordingID, roomID string, held *mutex.Lock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.held[roomID] = held
	s.starts[recordingID] = &pendingStart{
		roomID: roomID,
		timer:  time.AfterFunc(s.config.StartTimeout, func() { s.failStuckStart(recordingID) }),
	}
}

// failStuckStart fires when a recording sat in starting state for the whole
// start timeout. The attempt is failed and the lock released so the room is
// not blocked for the full lock TTL.
func (s *Service) failStuckStart(recordingID string) {
	s.mu.Lock()
	pending, ok := s.starts[recordingID]
	if ok {
		delete(s.starts, recordingID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stuckTimeout)
	defer cancel()

	rec, err := s.recordings.FindByID(ctx, recordingID)
	if err != nil {
		s.log.Error("stuck start check failed", "recording", recordingID, "error", err)
		s.releaseRoomLock(ctx, pending.roomID)
		return
	}
	if rec.Status != StatusStarting {
		return
	}

	rec.Status = StatusFailed
	rec.LastUpdatedAt = time.Now().UTC()
	if err := s.recordings.Save(ctx, rec); err != nil {
		s.log.Error("stuck recording could not be failed", "recording", recordingID, "error", err)
	}
	if rec.EgressID != "" {
		if err := s.media.StopRecording(ctx, rec.EgressID); err != nil {
			s.log.Warn("stopping stuck egress failed", "recording", recordingID, "error", err)
		}
	}
	s.releaseRoomLock(ctx, pending.roomID)
	recordLifecycleEvent(eventStartTimeout)
	s.notify(ctx, rec)
	s.log.Warn("recording start timed out", "recording", recordingID, "room", pending.roomID)
}

func (s *Service) dropPendingStart(recordingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pending, ok := s.starts[recordingID]; ok {
		pending.timer.Stop()
		delete(s.starts, recordingID)
	}
}

// releaseRoomLock prefers the locally held lease; when the terminal update
// arrived on a different instance than the one that started the recording,
// it falls back to forced release.
func (s *Service) releaseRoomLock(ctx context.Context, roomID string) {
	s.mu.Lock()
	held, ok := s.held[roomID]
	if ok {
		delete(s.held, roomID)
	}
	s.mu.Unlock()

	if ok {
		if err := s.locks.Release(ctx, held); err != nil {
			s.log.Error("recording lock release failed", "room", roomID, "error", err)
		}
		return
	}
	if err := s.locks.ForceRelease(ctx, mutex.RecordingKey(roomID)); err != nil {
		s.log.Error("recording lock forced release failed", "room", roomID, "error", err)
	}
}

func (s *Service) releaseLockFor(ctx context.Context, roomID string, held *mutex.Lock) {
	if err := s.locks.Release(ctx, held); err != nil {
		s.log.Error("recording lock release failed", "room", roomID, "error", err)
	}
}

func (s *Service) forgetRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, roomID)
	for id, pending := range s.starts {
		if pending.roomID == roomID {
			pending.timer.Stop()
			delete(s.starts, id)
		}
	}
}

func (s *Service) notify(ctx context.Context, rec *Recording) {
	event := webhook.Event{
		Type:      webhook.EventRecordingUpdated,
		RoomID:    rec.RoomID,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"recordingId": rec.ID,
			"status":      string(rec.Status),
		},
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.Warn("webhook notification failed", "recording", rec.ID, "error", err)
	}
}
