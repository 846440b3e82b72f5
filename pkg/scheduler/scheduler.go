// Package scheduler runs named recurring and delayed jobs with at-most-one
// concurrent runner per job across the fleet. Instances never talk to each
// other: exclusion comes from a scheduled-task lock in the coordination
// store, taken fresh on every firing.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/mutex"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
)

const (
	// DefaultLockTTLMargin is subtracted from a cron task's period so the
	// execution lock from one firing has expired before the next firing.
	DefaultLockTTLMargin = 5 * time.Second
	// DefaultMinLockTTL floors the derived TTL for high-frequency tasks.
	DefaultMinLockTTL = time.Second
)

// TaskLocker grants fleet-wide execution locks for scheduled tasks.
// *mutex.Service satisfies it.
type TaskLocker interface {
	AcquireScheduledTask(ctx context.Context, taskName string, ttl time.Duration) (*mutex.Lock, bool, error)
}

// Config tunes lock TTL derivation.
type Config struct {
	LockTTLMargin time.Duration
	MinLockTTL    time.Duration
}

func (c *Config) normalize() {
	if c.LockTTLMargin <= 0 {
		c.LockTTLMargin = DefaultLockTTLMargin
	}
	if c.MinLockTTL <= 0 {
		c.MinLockTTL = DefaultMinLockTTL
	}
}

type taskHandle struct {
	task   Task
	expr   *cronExpr
	cancel context.CancelFunc // nil while quiesced
}

// Scheduler owns a process-local registry of named tasks. Tasks only run
// while the coordination store is ready: the scheduler implements the store
// monitor's observer contract and quiesces on disconnect. Cron registrations
// survive a disconnect and are rescheduled on reconnect; pending timeout
// tasks are lost.
type Scheduler struct {
	locker TaskLocker
	log    logger.Logger
	config Config

	mu        sync.Mutex
	tasks     map[string]*taskHandle
	ready     bool
	closed    bool
	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a scheduler. It stays idle until OnReady fires.
func New(locker TaskLocker, log logger.Logger, cfg Config) (*Scheduler, error) {
	if locker == nil {
		return nil, schedulerError(ErrValidation, "task locker is required")
	}
	if log == nil {
		return nil, schedulerError(ErrValidation, "logger is required")
	}
	cfg.normalize()
	return &Scheduler{
		locker: locker,
		log:    log,
		config: cfg,
		tasks:  map[string]*taskHandle{},
	}, nil
}

// Register adds a named task. Registering a name twice is a logged no-op.
// If the store is already ready the task is scheduled immediately.
func (s *Scheduler) Register(task Task) error {
	if err := task.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return schedulerError(ErrClosed, "")
	}
	if _, exists := s.tasks[task.Name]; exists {
		s.log.Warn("task already registered, ignoring", "task", task.Name)
		return nil
	}

	handle := &taskHandle{task: task}
	if task.Kind == KindCron {
		expr, err := parseCronSpec(CronSpec(task.Period))
		if err != nil {
			return err
		}
		handle.expr = expr
	}
	s.tasks[task.Name] = handle

	if s.ready {
		s.scheduleLocked(handle)
	}
	return nil
}

// Cancel stops a task's local timer and removes its registration. It does
// not touch other instances' registrations nor any held lock.
func (s *Scheduler) Cancel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.tasks[name]
	if !ok {
		return schedulerError(ErrNotFound, fmt.Sprintf("task %q", name))
	}
	if handle.cancel != nil {
		handle.cancel()
		handle.cancel = nil
	}
	delete(s.tasks, name)
	return nil
}

// OnReady schedules every registered task. Fired by the store monitor on
// first connect and after each recovery.
func (s *Scheduler) OnReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ready {
		return
	}
	s.ready = true
	s.runCtx, s.runCancel = context.WithCancel(context.Background())
	for _, handle := range s.tasks {
		s.scheduleLocked(handle)
	}
	s.log.Info("scheduler resumed", "tasks", len(s.tasks))
}

// OnDisconnected quiesces all timers. Cron registrations are kept for
// rescheduling on reconnect; pending timeout tasks are dropped as lost.
func (s *Scheduler) OnDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return
	}
	s.ready = false
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	for name, handle := range s.tasks {
		handle.cancel = nil
		if handle.task.Kind == KindTimeout {
			s.log.Warn("pending timeout task lost on store disconnect", "task", name)
			delete(s.tasks, name)
		}
	}
	s.log.Warn("scheduler paused, coordination store unavailable")
}

// Stop cancels everything and waits for running loops to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ready = false
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	s.tasks = map[string]*taskHandle{}
	s.mu.Unlock()

	s.wg.Wait()
}

// scheduleLocked starts the task's loop. Caller holds s.mu and s.ready.
func (s *Scheduler) scheduleLocked(handle *taskHandle) {
	taskCtx, cancel := context.WithCancel(s.runCtx)
	handle.cancel = cancel

	s.wg.Add(1)
	switch handle.task.Kind {
	case KindCron:
		go s.runCronLoop(taskCtx, handle)
	case KindTimeout:
		go s.runTimeout(taskCtx, handle.task)
	}
}

func (s *Scheduler) runCronLoop(ctx context.Context, handle *taskHandle) {
	defer s.wg.Done()
	task := handle.task

	if task.RunImmediately {
		s.fire(ctx, task)
	}

	now := time.Now().UTC()
	for {
		nextRun, err := handle.expr.next(now)
		if err != nil {
			s.log.Error("cron task has no next run", "task", task.Name, "error", err)
			return
		}

		timer := time.NewTimer(time.Until(nextRun))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.fire(ctx, task)
		now = nextRun
	}
}

// fire runs one lock-guarded execution attempt. The lock is left to expire
// on its own: its continued presence means "ran recently", which is exactly
// the signal other instances should observe until the next firing window.
func (s *Scheduler) fire(ctx context.Context, task Task) {
	ttl := s.lockTTLFor(task)

	_, acquired, err := s.locker.AcquireScheduledTask(ctx, task.Name, ttl)
	if err != nil {
		recordDispatch(task.Name, dispatchLockError)
		s.log.Error("task lock unavailable, skipping run", "task", task.Name, "error", err)
		return
	}
	if !acquired {
		recordDispatch(task.Name, dispatchSkipped)
		s.log.Debug("task already running on another instance", "task", task.Name)
		return
	}

	s.runAction(ctx, task)
}

func (s *Scheduler) runTimeout(ctx context.Context, task Task) {
	defer s.wg.Done()

	timer := time.NewTimer(task.Delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}

	s.runAction(ctx, task)

	s.mu.Lock()
	delete(s.tasks, task.Name)
	s.mu.Unlock()
}

func (s *Scheduler) runAction(ctx context.Context, task Task) {
	defer func() {
		if recovered := recover(); recovered != nil {
			recordDispatch(task.Name, dispatchFailed)
			s.log.Error("task panicked", "task", task.Name, "panic", recovered)
		}
	}()

	if err := task.Action(ctx); err != nil {
		recordDispatch(task.Name, dispatchFailed)
		s.log.Error("task failed", "task", task.Name, "error", err)
		return
	}
	recordDispatch(task.Name, dispatchCompleted)
}

func (s *Scheduler) lockTTLFor(task Task) time.Duration {
	if task.LockTTL > 0 {
		return task.LockTTL
	}
	ttl := task.Period - s.config.LockTTLMargin
	if ttl < s.config.MinLockTTL {
		ttl = s.config.MinLockTTL
	}
	return ttl
}
