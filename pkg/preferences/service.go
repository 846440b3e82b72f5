package preferences

import (
	"context"
	"errors"
	"time"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/mutex"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
)

// initLockTTL bounds how long the global-config lock may outlive a crashed
// initializer. Initialization itself takes milliseconds.
const initLockTTL = 30 * time.Second

// Service seeds and reads global preferences.
type Service struct {
	repo  Repository
	locks *mutex.Service
	log   logger.Logger
}

// NewService wires the preferences service.
func NewService(repo Repository, locks *mutex.Service, log logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("preferences repository is required")
	}
	if locks == nil {
		return nil, errors.New("mutex service is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: repo, locks: locks, log: log}, nil
}

// Initialize seeds the defaults exactly once across the fleet. When the
// global-config lock is held, another instance is already initializing and
// this call returns without writing. Re-running against an initialized
// store is a no-op.
func (s *Service) Initialize(ctx context.Context) error {
	if _, err := s.repo.Get(ctx); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotInitialized) {
		return err
	}

	held, acquired, err := s.locks.AcquireGlobalConfig(ctx, initLockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		s.log.Debug("global preferences initialization in progress elsewhere")
		return nil
	}
	defer func() {
		if err := s.locks.Release(ctx, held); err != nil {
			s.log.Warn("global config lock release failed", "error", err)
		}
	}()

	// Re-check under the lock: the previous holder may have just finished.
	if _, err := s.repo.Get(ctx); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotInitialized) {
		return err
	}

	defaults := Defaults()
	if err := s.repo.Insert(ctx, &defaults); err != nil {
		return err
	}
	s.log.Info("global preferences initialized with defaults")
	return nil
}

// Get returns the global preferences document.
func (s *Service) Get(ctx context.Context) (*GlobalPreferences, error) {
	return s.repo.Get(ctx)
}

// Update replaces the global preferences document.
func (s *Service) Update(ctx context.Context, prefs *GlobalPreferences) error {
	if prefs == nil {
		return errors.New("preferences document is required")
	}
	return s.repo.Update(ctx, prefs)
}
