package preferences

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/lock"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/mutex"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
)

func newTestService(t *testing.T, provider lock.Provider) (*Service, *MemoryRepository) {
	t.Helper()
	locks, err := mutex.NewService(provider)
	if err != nil {
		t.Fatalf("mutex service: %v", err)
	}
	repo := NewMemoryRepository()
	svc, err := NewService(repo, locks, logger.NewNop())
	if err != nil {
		t.Fatalf("preferences service: %v", err)
	}
	return svc, repo
}

func TestInitializeSeedsDefaultsOnce(t *testing.T) {
	provider := lock.NewMemoryProvider()
	defer provider.Close()
	svc, _ := newTestService(t, provider)

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	prefs, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("get after init failed: %v", err)
	}
	if prefs.ID != GlobalPreferencesID {
		t.Errorf("wrong document id %q", prefs.ID)
	}
	if !prefs.RecordingEnabled || !prefs.ChatEnabled {
		t.Error("defaults should enable recording and chat")
	}
	if provider.Held(mutex.GlobalConfigKey()) {
		t.Error("global config lock should be released after initialization")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	provider := lock.NewMemoryProvider()
	defer provider.Close()
	svc, repo := newTestService(t, provider)

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	customized, _ := repo.Get(context.Background())
	customized.WebhooksEnabled = true
	customized.WebhookURL = "https://example.com/hook"
	if err := repo.Update(context.Background(), customized); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// A later boot must not reset operator changes.
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("re-initialize failed: %v", err)
	}
	prefs, _ := svc.Get(context.Background())
	if !prefs.WebhooksEnabled || prefs.WebhookURL != "https://example.com/hook" {
		t.Error("re-initialization must not overwrite existing preferences")
	}
}

func TestInitializeSkipsWhileLockHeld(t *testing.T) {
	provider := lock.NewMemoryProvider()
	defer provider.Close()
	svc, repo := newTestService(t, provider)

	// Another instance mid-initialization.
	if _, acquired, err := provider.Acquire(context.Background(), mutex.GlobalConfigKey(), time.Minute); err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize should skip quietly, got %v", err)
	}
	if _, err := repo.Get(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Error("skipping instance must not write the document")
	}
}

func TestInitializeFailsClosedOnStoreError(t *testing.T) {
	provider := lock.NewMemoryProvider()
	_ = provider.Close()
	svc, _ := newTestService(t, provider)

	if err := svc.Initialize(context.Background()); err == nil {
		t.Fatal("initialize must fail when the lock store is unavailable")
	}
}
