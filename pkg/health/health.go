// Package health aggregates component health checks for the ops endpoint.
package health

import (
	"context"
	"sync"
	"time"
)

// Status of a single component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Checkable is implemented by adapters and providers that can report
// their own connectivity.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// Checker runs a named health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// AdapterChecker wraps any Checkable with a name and timeout.
type AdapterChecker struct {
	name    string
	target  Checkable
	timeout time.Duration
}

// NewAdapterChecker builds a checker around target. A zero timeout
// defaults to five seconds.
func NewAdapterChecker(name string, target Checkable, timeout time.Duration) *AdapterChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{name: name, target: target, timeout: timeout}
}

func (c *AdapterChecker) Name() string { return c.name }

func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.target.HealthCheck(checkCtx)
	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}
	return result
}

// Registry holds the set of registered checkers.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checkers: map[string]Checker{}}
}

// Register adds or replaces a checker under its name.
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// Unregister removes a checker by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// CheckAll runs every registered checker and returns the individual
// results plus an overall healthy flag.
func (r *Registry) CheckAll(ctx context.Context) ([]CheckResult, bool) {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, checker := range r.checkers {
		checkers = append(checkers, checker)
	}
	r.mu.RUnlock()

	healthy := true
	results := make([]CheckResult, 0, len(checkers))
	for _, checker := range checkers {
		result := checker.Check(ctx)
		if result.Status != StatusHealthy {
			healthy = false
		}
		results = append(results, result)
	}
	return results, healthy
}
