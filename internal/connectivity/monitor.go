package connectivity

import (
	"context"
	"sync/atomic"
	"time"

	"smartstock/internal/events"

	"github.com/rs/zerolog"
)

// Prober answers whether the remote system is currently reachable.
type Prober interface {
	Check(ctx context.Context) error
}

// Monitor polls the remote health endpoint and publishes edge-triggered
// online/offline events. Consumers read the current state via IsOnline;
// the façade reacts to the online edge by starting a sync pass.
type Monitor struct {
	prober   Prober
	bus      *events.EventBus
	interval time.Duration
	timeout  time.Duration
	logger   *zerolog.Logger

	online  atomic.Bool
	started atomic.Bool
}

func NewMonitor(prober Prober, bus *events.EventBus, interval, timeout time.Duration, logger *zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Monitor{
		prober:   prober,
		bus:      bus,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// IsOnline reports the last observed reachability state.
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// Start runs the probe loop until ctx is done. The first probe fires
// immediately so the initial state is known before traffic arrives.
func (m *Monitor) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}

	m.logger.Info().Dur("interval", m.interval).Msg("connectivity monitor started")
	defer m.logger.Info().Msg("connectivity monitor stopped")

	m.CheckNow(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow probes once and updates the state. Exposed so the façade can
// force a re-check after a submission fails unexpectedly.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Check(probeCtx)
	online := err == nil
	if !online {
		m.logger.Debug().Err(err).Msg("reachability probe failed")
	}
	m.setOnline(online)
	return online
}

// setOnline stores the new state and publishes an event only on an edge.
func (m *Monitor) setOnline(online bool) {
	previous := m.online.Swap(online)
	if previous == online {
		return
	}

	if online {
		m.logger.Info().Msg("connection restored")
		_ = m.bus.PublishJSON(events.EventConnectivityOnline, nil)
	} else {
		m.logger.Warn().Msg("connection lost")
		_ = m.bus.PublishJSON(events.EventConnectivityOffline, nil)
	}
}
