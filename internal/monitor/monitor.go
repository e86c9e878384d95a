// Package monitor runs the background liveness loop: an immediate probe on
// start, then one probe per fixed interval. A probe flips connection status
// in the store and never surfaces a user notification, since an outage would
// otherwise nag every interval.
package monitor

import (
	"context"
	"sync"
	"time"

	"eisen/internal/state"
	"eisen/internal/utils"
)

// Pinger is the liveness probe surface. *gateway.Client satisfies it.
type Pinger interface {
	Configured() bool
	Ping(ctx context.Context) error
}

// Repainter receives a repaint trigger after each status change.
type Repainter interface {
	Repaint()
}

// DefaultInterval matches the reference deployment's probe cadence.
const DefaultInterval = 30 * time.Second

// Monitor periodically probes the backend and updates connection status.
// There is no backoff: a flapping connection simply flips status each
// interval.
type Monitor struct {
	gw       Pinger
	store    *state.Store
	ui       Repainter
	log      *utils.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor. A zero interval falls back to DefaultInterval.
func New(gw Pinger, store *state.Store, ui Repainter, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		gw:       gw,
		store:    store,
		ui:       ui,
		log:      utils.GetLogger(),
		interval: interval,
	}
}

// Start begins probing: once immediately, then every interval. It is a
// no-op when the backend is not configured or the monitor already runs.
func (m *Monitor) Start(ctx context.Context) {
	if !m.gw.Configured() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(runCtx)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// Stop cancels the probe loop and waits for it to exit. Safe to call when
// the monitor was never started, and safe to call twice.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// CheckNow performs a single probe outside the loop. It returns nil when
// the backend answered and the probe failure otherwise, so one-shot callers
// can report why the backend is unreachable.
func (m *Monitor) CheckNow(ctx context.Context) error {
	if !m.gw.Configured() {
		return utils.ErrBackendNotConfigured()
	}
	return m.probe(ctx)
}

func (m *Monitor) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	if err := m.gw.Ping(probeCtx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		m.log.Debug("connection probe failed: %v", err)
		m.store.SetConnection(state.Disconnected, "backend unreachable")
		m.repaint()
		return err
	}

	m.store.SetConnection(state.Connected, "connected to backend")
	m.repaint()
	return nil
}

func (m *Monitor) repaint() {
	if m.ui != nil {
		m.ui.Repaint()
	}
}
