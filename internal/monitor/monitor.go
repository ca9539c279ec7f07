// Package monitor periodically probes the browser session and restarts it
// when it stops answering.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tradecrawl/screenerd/internal/events"
	"github.com/tradecrawl/screenerd/internal/metrics"
	"github.com/tradecrawl/screenerd/internal/screener"
)

// DefaultInterval is the probe cadence when none is configured.
const DefaultInterval = time.Minute

// Session is the slice of the browser session the monitor drives.
type Session interface {
	IsAlive(ctx context.Context) bool
	Restart(ctx context.Context) error
}

// Monitor owns the liveness loop. It never takes the session gate itself;
// probing is gate-free and Restart acquires the gate internally, so a
// long-running fetch delays a restart instead of deadlocking it.
type Monitor struct {
	session  Session
	clock    screener.Clock
	ids      screener.Identifier
	interval time.Duration
	hub      *events.Hub
	logger   *zap.Logger
}

// New builds a Monitor. A nil hub disables event emission; a zero interval
// falls back to DefaultInterval.
func New(
	session Session,
	clock screener.Clock,
	ids screener.Identifier,
	interval time.Duration,
	hub *events.Hub,
	logger *zap.Logger,
) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		session:  session,
		clock:    clock,
		ids:      ids,
		interval: interval,
		hub:      hub,
		logger:   logger,
	}
}

// Run probes the session every interval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.logger.Info("session monitor started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session monitor stopped")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	alive := m.session.IsAlive(ctx)
	metrics.SetBrowserAlive(alive)
	if alive {
		return
	}

	m.logger.Warn("browser session unresponsive, restarting",
		zap.Error(screener.ErrSessionUnresponsive))
	metrics.ObserveSessionRestart("monitor")
	m.emitRestart()

	if err := m.session.Restart(ctx); err != nil {
		m.logger.Error("session restart failed", zap.Error(err))
		return
	}
	m.logger.Info("session restarted by monitor")
}

func (m *Monitor) emitRestart() {
	id, err := m.ids.NewID()
	if err != nil {
		id = "unidentified"
	}
	m.hub.Emit(events.Event{
		ID:    id,
		TS:    m.clock.Now().UTC(),
		Stage: events.StageSessionRestart,
		Note:  "monitor",
	})
}
