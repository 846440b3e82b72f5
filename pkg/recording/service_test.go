package recording

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/config"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/lock"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/mutex"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
)

type fakeEngine struct {
	mu       sync.Mutex
	startErr error
	started  []string
	stopped  []string
}

func (f *fakeEngine) IsRoomEmpty(context.Context, string) (bool, error) { return true, nil }
func (f *fakeEngine) DeleteRoom(context.Context, string) error          { return nil }

func (f *fakeEngine) StartRecording(_ context.Context, roomID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, roomID)
	return "egress-" + roomID, nil
}

func (f *fakeEngine) StopRecording(_ context.Context, egressID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, egressID)
	return nil
}

func (f *fakeEngine) stoppedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stopped)
}

func testConfig() config.RecordingsConfig {
	return config.RecordingsConfig{
		LockTTL:             time.Minute,
		StartTimeout:        time.Second,
		StaleThreshold:      time.Minute,
		StaleSweepInterval:  time.Minute,
		OrphanSweepInterval: time.Minute,
		OrphanGrace:         time.Second,
	}
}

func newRecordingService(t *testing.T, cfg config.RecordingsConfig) (*Service, *MemoryRepository, *lock.MemoryProvider, *mutex.Service, *fakeEngine) {
	t.Helper()
	provider := lock.NewMemoryProvider()
	t.Cleanup(func() { _ = provider.Close() })

	locks, err := mutex.NewService(provider)
	if err != nil {
		t.Fatalf("mutex service: %v", err)
	}

	repo := NewMemoryRepository()
	engine := &fakeEngine{}
	svc, err := NewService(repo, locks, engine, nil, logger.NewNop(), cfg)
	if err != nil {
		t.Fatalf("recording service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, repo, provider, locks, engine
}

func TestStartTakesLockBeforeEngine(t *testing.T) {
	svc, repo, provider, _, engine := newRecordingService(t, testConfig())

	rec, err := svc.Start(context.Background(), "room1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if rec.Status != StatusStarting {
		t.Errorf("new recording should be starting, got %s", rec.Status)
	}
	if rec.EgressID != "egress-room1" {
		t.Errorf("egress id not captured, got %q", rec.EgressID)
	}
	if !provider.Held(mutex.RecordingKey("room1")) {
		t.Error("recording lock should be held after start")
	}
	if len(engine.started) != 1 {
		t.Errorf("engine should have been started once, got %d", len(engine.started))
	}
	if _, err := repo.FindByID(context.Background(), rec.ID); err != nil {
		t.Errorf("recording not persisted: %v", err)
	}
}

func TestStartRejectedWhileLockHeld(t *testing.T) {
	svc, _, _, _, engine := newRecordingService(t, testConfig())

	if _, err := svc.Start(context.Background(), "room1"); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	_, err := svc.Start(context.Background(), "room1")
	if !errors.Is(err, ErrRecordingInProgress) {
		t.Fatalf("second start should be rejected, got %v", err)
	}
	if len(engine.started) != 1 {
		t.Errorf("engine must not be touched on a rejected start, started %d times", len(engine.started))
	}
}

func TestStartFailsClosedOnLockStoreError(t *testing.T) {
	provider := lock.NewMemoryProvider()
	_ = provider.Close() // closed provider simulates an unreachable store

	locks, err := mutex.NewService(provider)
	if err != nil {
		t.Fatalf("mutex service: %v", err)
	}
	engine := &fakeEngine{}
	svc, err := NewService(NewMemoryRepository(), locks, engine, nil, logger.NewNop(), testConfig())
	if err != nil {
		t.Fatalf("recording service: %v", err)
	}

	if _, err := svc.Start(context.Background(), "room1"); err == nil {
		t.Fatal("start must fail when the lock store is unavailable")
	}
	if len(engine.started) != 0 {
		t.Error("engine must not be started without a lock")
	}
}

func TestStartReleasesLockOnEngineFailure(t *testing.T) {
	svc, _, provider, _, engine := newRecordingService(t, testConfig())
	engine.startErr = errors.New("egress refused")

	if _, err := svc.Start(context.Background(), "room1"); err == nil {
		t.Fatal("start should surface the engine failure")
	}
	if provider.Held(mutex.RecordingKey("room1")) {
		t.Error("lock must be released when the engine refuses to start")
	}

	// The room is immediately available for another attempt.
	engine.startErr = nil
	if _, err := svc.Start(context.Background(), "room1"); err != nil {
		t.Fatalf("retry after engine failure should succeed: %v", err)
	}
}

func TestStatusUpdateBumpsLivenessAndReleasesOnTerminal(t *testing.T) {
	svc, repo, provider, _, _ := newRecordingService(t, testConfig())

	rec, err := svc.Start(context.Background(), "room1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	before := rec.LastUpdatedAt

	time.Sleep(5 * time.Millisecond)
	if err := svc.HandleStatusUpdate(context.Background(), rec.ID, StatusActive); err != nil {
		t.Fatalf("active update failed: %v", err)
	}
	updated, _ := repo.FindByID(context.Background(), rec.ID)
	if !updated.LastUpdatedAt.After(before) {
		t.Error("status update must bump the liveness timestamp")
	}
	if !provider.Held(mutex.RecordingKey("room1")) {
		t.Error("lock must stay held through non-terminal transitions")
	}

	if err := svc.HandleStatusUpdate(context.Background(), rec.ID, StatusComplete); err != nil {
		t.Fatalf("complete update failed: %v", err)
	}
	if provider.Held(mutex.RecordingKey("room1")) {
		t.Error("lock must be released on a terminal transition")
	}

	// Terminal transitions are idempotent; conflicting ones are rejected.
	if err := svc.HandleStatusUpdate(context.Background(), rec.ID, StatusComplete); err != nil {
		t.Errorf("repeating the terminal state should be a no-op, got %v", err)
	}
	if err := svc.HandleStatusUpdate(context.Background(), rec.ID, StatusFailed); !errors.Is(err, ErrRecordingFinished) {
		t.Errorf("conflicting terminal state should be rejected, got %v", err)
	}
}

func TestStatusUpdateValidation(t *testing.T) {
	svc, _, _, _, _ := newRecordingService(t, testConfig())

	if err := svc.HandleStatusUpdate(context.Background(), "whatever", Status("melting")); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("unknown status should be rejected, got %v", err)
	}
	if err := svc.HandleStatusUpdate(context.Background(), "missing", StatusActive); !errors.Is(err, ErrRecordingNotFound) {
		t.Errorf("unknown recording should be rejected, got %v", err)
	}
}

func TestStuckStartTimesOutAndFrees(t *testing.T) {
	cfg := testConfig()
	cfg.StartTimeout = 30 * time.Millisecond
	svc, repo, provider, _, engine := newRecordingService(t, cfg)

	rec, err := svc.Start(context.Background(), "room1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		updated, _ := repo.FindByID(context.Background(), rec.ID)
		if updated.Status == StatusFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("recording never timed out, status %s", updated.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if provider.Held(mutex.RecordingKey("room1")) {
		t.Error("lock must be released after a stuck start")
	}
	if engine.stoppedCount() != 1 {
		t.Errorf("stuck egress should be stopped, stops: %d", engine.stoppedCount())
	}
}

func TestProgressCancelsStuckTimer(t *testing.T) {
	cfg := testConfig()
	cfg.StartTimeout = 40 * time.Millisecond
	svc, repo, provider, _, _ := newRecordingService(t, cfg)

	rec, err := svc.Start(context.Background(), "room1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.HandleStatusUpdate(context.Background(), rec.ID, StatusActive); err != nil {
		t.Fatalf("active update failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	updated, _ := repo.FindByID(context.Background(), rec.ID)
	if updated.Status != StatusActive {
		t.Errorf("recording that made progress must not be failed, got %s", updated.Status)
	}
	if !provider.Held(mutex.RecordingKey("room1")) {
		t.Error("lock must stay held for the active recording")
	}
}

func TestStaleSweepAbortsSilentRecordings(t *testing.T) {
	svc, repo, provider, locks, _ := newRecordingService(t, testConfig())

	// A recording owned by a crashed instance: record silent for longer
	// than the threshold, lock still held remotely.
	old := time.Now().UTC().Add(-5 * time.Minute)
	stale := &Recording{ID: "rec-stale", RoomID: "room1", Status: StatusActive, StartedAt: old, LastUpdatedAt: old}
	if err := repo.Save(context.Background(), stale); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	if _, acquired, err := locks.AcquireRecording(context.Background(), "room1", time.Minute); err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}

	// A healthy recent recording must survive the sweep.
	fresh := &Recording{ID: "rec-fresh", RoomID: "room2", Status: StatusActive,
		StartedAt: time.Now().UTC(), LastUpdatedAt: time.Now().UTC()}
	if err := repo.Save(context.Background(), fresh); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	if err := svc.RunStaleSweep(context.Background()); err != nil {
		t.Fatalf("stale sweep failed: %v", err)
	}

	swept, _ := repo.FindByID(context.Background(), "rec-stale")
	if swept.Status != StatusAborted {
		t.Errorf("stale recording should be aborted, got %s", swept.Status)
	}
	if provider.Held(mutex.RecordingKey("room1")) {
		t.Error("stale recording's lock should be released")
	}
	kept, _ := repo.FindByID(context.Background(), "rec-fresh")
	if kept.Status != StatusActive {
		t.Errorf("fresh recording must be untouched, got %s", kept.Status)
	}

	// The room is free for a new recording once the stale one is cleared.
	if _, err := svc.Start(context.Background(), "room1"); err != nil {
		t.Errorf("start after stale cleanup should succeed: %v", err)
	}
}

func TestOrphanSweepReleasesAbandonedLocks(t *testing.T) {
	cfg := testConfig()
	cfg.OrphanGrace = 0
	svc, repo, provider, locks, _ := newRecordingService(t, cfg)

	// Lock with no recording record behind it.
	if _, acquired, err := locks.AcquireRecording(context.Background(), "ghost", cfg.LockTTL); err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}
	// Lock backed by a live recording.
	if _, acquired, err := locks.AcquireRecording(context.Background(), "busy", cfg.LockTTL); err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}
	live := &Recording{ID: "rec-live", RoomID: "busy", Status: StatusActive,
		StartedAt: time.Now().UTC(), LastUpdatedAt: time.Now().UTC()}
	if err := repo.Save(context.Background(), live); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	if err := svc.RunOrphanSweep(context.Background()); err != nil {
		t.Fatalf("orphan sweep failed: %v", err)
	}

	if provider.Held(mutex.RecordingKey("ghost")) {
		t.Error("orphaned lock should be released")
	}
	if !provider.Held(mutex.RecordingKey("busy")) {
		t.Error("lock with a live recording must be kept")
	}
}

func TestOrphanSweepRespectsGrace(t *testing.T) {
	cfg := testConfig()
	cfg.OrphanGrace = time.Minute
	svc, _, provider, locks, _ := newRecordingService(t, cfg)

	// Freshly acquired, record not yet written: inside the grace window.
	if _, acquired, err := locks.AcquireRecording(context.Background(), "young", cfg.LockTTL); err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}

	if err := svc.RunOrphanSweep(context.Background()); err != nil {
		t.Fatalf("orphan sweep failed: %v", err)
	}
	if !provider.Held(mutex.RecordingKey("young")) {
		t.Error("lock inside the grace window must not be released")
	}
}

func TestDeleteByRoomRemovesRecordingsAndLock(t *testing.T) {
	svc, repo, provider, _, _ := newRecordingService(t, testConfig())

	if _, err := svc.Start(context.Background(), "room1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	other := &Recording{ID: "rec-old", RoomID: "room1", Status: StatusComplete,
		StartedAt: time.Now().UTC(), LastUpdatedAt: time.Now().UTC()}
	if err := repo.Save(context.Background(), other); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	if err := svc.DeleteByRoom(context.Background(), "room1"); err != nil {
		t.Fatalf("delete by room failed: %v", err)
	}
	if repo.Count() != 0 {
		t.Errorf("all recordings of the room should be gone, %d remain", repo.Count())
	}
	if provider.Held(mutex.RecordingKey("room1")) {
		t.Error("recording lock should be removed with the room")
	}
}

func TestStopMovesRecordingToEnding(t *testing.T) {
	svc, repo, provider, _, engine := newRecordingService(t, testConfig())

	rec, err := svc.Start(context.Background(), "room1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.HandleStatusUpdate(context.Background(), rec.ID, StatusActive); err != nil {
		t.Fatalf("active update failed: %v", err)
	}

	if err := svc.Stop(context.Background(), rec.ID); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	updated, _ := repo.FindByID(context.Background(), rec.ID)
	if updated.Status != StatusEnding {
		t.Errorf("stopped recording should be ending, got %s", updated.Status)
	}
	if engine.stoppedCount() != 1 {
		t.Errorf("engine stop not issued, stops: %d", engine.stoppedCount())
	}
	if !provider.Held(mutex.RecordingKey("room1")) {
		t.Error("lock is held until the engine confirms the terminal state")
	}

	if err := svc.HandleStatusUpdate(context.Background(), rec.ID, StatusComplete); err != nil {
		t.Fatalf("complete update failed: %v", err)
	}
	if err := svc.Stop(context.Background(), rec.ID); !errors.Is(err, ErrRecordingFinished) {
		t.Errorf("stopping a finished recording should be rejected, got %v", err)
	}
}
