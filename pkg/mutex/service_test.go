package mutex

import (
	"context"
	"testing"
	"time"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/lock"
)

func newTestService(t *testing.T) (*Service, *lock.MemoryProvider) {
	t.Helper()
	provider := lock.NewMemoryProvider()
	t.Cleanup(func() { _ = provider.Close() })

	service, err := NewService(provider)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return service, provider
}

func TestKeyNamespaces(t *testing.T) {
	if key := ScheduledTaskKey("room-gc"); key != "lock:scheduled-task:room-gc" {
		t.Errorf("unexpected scheduled task key %q", key)
	}
	if key := RecordingKey("room-42"); key != "lock:recording:room-42" {
		t.Errorf("unexpected recording key %q", key)
	}
	if key := GlobalConfigKey(); key != "lock:global-config" {
		t.Errorf("unexpected global config key %q", key)
	}
}

func TestAcquireRecordingExclusion(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	held, acquired, err := service.AcquireRecording(ctx, "room-1", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("first recording lock should succeed: acquired=%v err=%v", acquired, err)
	}

	_, acquired, err = service.AcquireRecording(ctx, "room-1", time.Minute)
	if err != nil {
		t.Fatalf("second acquire errored: %v", err)
	}
	if acquired {
		t.Fatal("second recording lock on same room must be denied")
	}

	// A different room is unaffected.
	_, acquired, err = service.AcquireRecording(ctx, "room-2", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("other room should be lockable: acquired=%v err=%v", acquired, err)
	}

	if err := service.Release(ctx, held); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	_, acquired, _ = service.AcquireRecording(ctx, "room-1", time.Minute)
	if !acquired {
		t.Fatal("room lock should be free after release")
	}
}

func TestForceReleaseEvictsUnknownHolder(t *testing.T) {
	service, provider := newTestService(t)
	ctx := context.Background()

	_, acquired, _ := service.AcquireRecording(ctx, "room-9", time.Hour)
	if !acquired {
		t.Fatal("setup acquire failed")
	}

	if err := service.ForceRelease(ctx, RecordingKey("room-9")); err != nil {
		t.Fatalf("force release failed: %v", err)
	}
	if provider.Held(RecordingKey("room-9")) {
		t.Fatal("force release left the lock in place")
	}
}

func TestAcquireRejectsEmptyNames(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.Acquire(ctx, "", time.Minute); err == nil {
		t.Error("empty name should be rejected")
	}
	if _, _, err := service.AcquireScheduledTask(ctx, "", time.Minute); err == nil {
		t.Error("empty task name should be rejected")
	}
	if _, _, err := service.AcquireRecording(ctx, "", time.Minute); err == nil {
		t.Error("empty room id should be rejected")
	}
}

func TestHeldRecordingLocksListsRoomsOnly(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, acquired, _ := service.AcquireRecording(ctx, "room-a", time.Minute); !acquired {
		t.Fatal("setup acquire failed")
	}
	if _, acquired, _ := service.AcquireScheduledTask(ctx, "room-gc", time.Minute); !acquired {
		t.Fatal("setup acquire failed")
	}

	held, err := service.HeldRecordingLocks(ctx)
	if err != nil {
		t.Fatalf("held recording locks: %v", err)
	}
	if len(held) != 1 {
		t.Fatalf("expected only the recording lock, got %v", held)
	}
	remaining, ok := held["room-a"]
	if !ok {
		t.Fatalf("room-a missing from %v", held)
	}
	if remaining <= 0 || remaining > time.Minute {
		t.Errorf("implausible remaining ttl %v", remaining)
	}
}

func TestReleaseNilLockIsNoOp(t *testing.T) {
	service, _ := newTestService(t)
	if err := service.Release(context.Background(), nil); err != nil {
		t.Fatalf("release of nil lock should be a no-op, got: %v", err)
	}
}
