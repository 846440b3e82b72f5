package scheduler

import (
	"context"
	"strings"
	"time"
)

// Kind distinguishes recurring cron tasks from one-shot delayed tasks.
type Kind string

const (
	// KindCron tasks recur on a cron cadence and are fleet-singletons:
	// every firing is guarded by a scheduled-task lock.
	KindCron Kind = "cron"
	// KindTimeout tasks fire once after a delay on the instance that
	// registered them. They take no fleet-wide lock and are lost if the
	// coordination store disconnects before they fire.
	KindTimeout Kind = "timeout"
)

// Action is a task's side-effecting callback.
type Action func(ctx context.Context) error

// Task describes one named scheduler entry.
type Task struct {
	Name string
	Kind Kind

	// Period drives cron tasks. It is translated to a cron expression via
	// CronSpec, so sub-minute periods are subject to its coarsening rules.
	Period time.Duration

	// Delay drives timeout tasks.
	Delay time.Duration

	Action Action

	// LockTTL overrides the derived execution lock TTL when positive.
	// Cron tasks default to Period minus a margin, floored at a minimum.
	LockTTL time.Duration

	// RunImmediately makes a cron task fire once right after it is
	// scheduled, in addition to its cadence. The immediate run goes
	// through the same lock; losing that first acquire is expected when
	// another instance already ran it.
	RunImmediately bool
}

func (t *Task) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return schedulerError(ErrValidation, "task name is required")
	}
	if t.Action == nil {
		return schedulerError(ErrValidation, "task action is required")
	}
	switch t.Kind {
	case KindCron:
		if t.Period <= 0 {
			return schedulerError(ErrValidation, "cron task period must be > 0")
		}
		if _, err := parseCronSpec(CronSpec(t.Period)); err != nil {
			return err
		}
	case KindTimeout:
		if t.Delay <= 0 {
			return schedulerError(ErrValidation, "timeout task delay must be > 0")
		}
	default:
		return schedulerError(ErrValidation, "unknown task kind")
	}
	return nil
}
