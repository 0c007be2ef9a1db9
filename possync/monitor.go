package possync

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Monitor tracks connectivity to the remote store by probing its health
// endpoint. Offline is expected steady state, never an error; the only
// interesting event is the offline->online edge, which wakes the driver.
type Monitor struct {
	remote   RemoteStore
	logger   *logrus.Logger
	interval time.Duration

	mu       sync.Mutex
	online   bool
	onOnline []func()
}

func NewMonitor(remote RemoteStore, logger *logrus.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		remote:   remote,
		logger:   logger,
		interval: interval,
	}
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// NotifyOnline registers a callback fired on every offline->online
// transition. Callbacks must not block.
func (m *Monitor) NotifyOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, fn)
}

// SetOnline flips the connectivity flag, firing transition callbacks when
// the terminal comes back online.
func (m *Monitor) SetOnline(v bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = v
	var callbacks []func()
	if v && !wasOnline {
		callbacks = append(callbacks, m.onOnline...)
	}
	m.mu.Unlock()

	if v != wasOnline && m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"module": "possync",
			"online": v,
		}).Info("connectivity changed")
	}
	for _, fn := range callbacks {
		fn()
	}
}

// Run probes the remote on the configured interval until ctx is cancelled.
// The first probe happens immediately so startup reconciliation sees a
// correct flag as early as possible.
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe performs one health check and updates the flag.
func (m *Monitor) Probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.remote.Ping(pctx)
	m.SetOnline(err == nil)
	return err == nil
}
