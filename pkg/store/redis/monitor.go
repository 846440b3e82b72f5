package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
)

// ConnectionObserver receives coordination-store connectivity transitions.
// OnReady fires once on the first successful probe and again after every
// recovery; OnDisconnected fires once per outage.
type ConnectionObserver interface {
	OnReady()
	OnDisconnected()
}

type connState int

const (
	connUnknown connState = iota
	connUp
	connDown
)

// Monitor probes the store on a fixed interval and publishes up/down
// transitions to registered observers.
type Monitor struct {
	client   *redis.Client
	log      logger.Logger
	interval time.Duration

	mu        sync.Mutex
	observers []ConnectionObserver
	state     connState
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMonitor creates a monitor over client. A non-positive interval
// defaults to five seconds.
func NewMonitor(client *redis.Client, interval time.Duration, log logger.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		client:   client,
		log:      log,
		interval: interval,
	}
}

// Subscribe registers an observer. If the store is already known to be up,
// the observer's OnReady fires immediately so late subscribers do not miss
// the initial ready signal.
func (m *Monitor) Subscribe(observer ConnectionObserver) {
	m.mu.Lock()
	ready := m.state == connUp
	m.observers = append(m.observers, observer)
	m.mu.Unlock()

	if ready {
		observer.OnReady()
	}
}

// Start launches the probe loop. Probing stops when ctx is cancelled or
// Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.probe(loopCtx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				m.probe(loopCtx)
			}
		}
	}()
}

// Stop halts probing and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	err := m.client.Ping(probeCtx).Err()
	cancel()

	next := connUp
	if err != nil {
		next = connDown
	}

	m.mu.Lock()
	previous := m.state
	if previous == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	observers := make([]ConnectionObserver, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	switch next {
	case connUp:
		if previous == connDown {
			m.log.Info("coordination store reconnected")
		}
		for _, observer := range observers {
			observer.OnReady()
		}
	case connDown:
		m.log.Warn("coordination store unreachable", "error", err)
		for _, observer := range observers {
			observer.OnDisconnected()
		}
	}
}
