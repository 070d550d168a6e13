package agent

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// Pinger probes backend reachability. The HTTP client satisfies this with
// its health-check endpoint.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Monitor tracks connectivity by probing the backend on an interval. The
// first probe always reports its result so consumers learn the initial
// state; after that callbacks fire only on transitions. It starts offline
// until the first successful probe.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	online   bool
	reported bool
	onChange []func(online bool)
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewMonitor(pinger Pinger, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		pinger:   pinger,
		interval: interval,
		timeout:  interval,
		log:      log.With(slog.String("component", "connectivity_monitor")),
	}
}

// OnChange registers a callback invoked on every online/offline
// transition. Callbacks run on the monitor goroutine.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Start probes immediately and then on the configured interval.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		m.probe(runCtx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.probe(runCtx)
			}
		}
	}()
}

// Stop halts probing and waits for the monitor goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.HealthCheck(pctx)
	cancel()

	online := err == nil

	m.mu.Lock()
	changed := online != m.online || !m.reported
	m.reported = true
	m.online = online
	fns := make([]func(bool), len(m.onChange))
	copy(fns, m.onChange)
	m.mu.Unlock()

	if !changed {
		return
	}

	if online {
		m.log.Info("backend reachable")
	} else {
		m.log.Warn("backend unreachable", "error", err)
	}
	for _, fn := range fns {
		fn(online)
	}
}
