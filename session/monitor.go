// Package session implements the idle-timeout monitor kept for every logged
// in session.
package session

import (
	"context"
	"sync"
	"time"

	"catalogadmin/clock"
)

type Config struct {
	Timeout       time.Duration
	WarningTime   time.Duration
	CheckInterval time.Duration
}

// Hooks are the side effects a monitor triggers. Any of them may be nil.
type Hooks struct {
	// Warn is called once per idle period when the remaining time drops to
	// WarningTime or below.
	Warn func(remaining time.Duration)
	// Logout is called once when the session has been idle for Timeout.
	Logout func(ctx context.Context)
	// Validate reports whether the session is still valid server side.
	Validate func(ctx context.Context) bool
	// Expired is called when Validate reports an invalid session.
	Expired func()
}

type Status struct {
	LastActivity time.Time     `json:"last_activity"`
	Remaining    time.Duration `json:"remaining"`
	Warning      bool          `json:"warning"`
	Stopped      bool          `json:"stopped"`
	LoggedOut    bool          `json:"logged_out"`
}

type Monitor struct {
	cfg   Config
	hooks Hooks
	clock clock.Clock

	mu           sync.Mutex
	lastActivity time.Time
	warningShown bool
	loggedOut    bool
	stopped      bool
	done         chan struct{}
}

func NewMonitor(cfg Config, hooks Hooks, clk clock.Clock) *Monitor {
	clk = clock.OrReal(clk)
	return &Monitor{
		cfg:          cfg,
		hooks:        hooks,
		clock:        clk,
		lastActivity: clk.Now(),
		done:         make(chan struct{}),
	}
}

// Touch records user activity and clears a pending warning.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.lastActivity = m.clock.Now()
	m.warningShown = false
}

// Check runs one evaluation of the idle state. It is what the ticker started
// by Start calls on every interval.
func (m *Monitor) Check(ctx context.Context) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	inactive := m.clock.Now().Sub(m.lastActivity)
	remaining := m.cfg.Timeout - inactive

	warn := false
	if remaining <= m.cfg.WarningTime && !m.warningShown {
		m.warningShown = true
		warn = true
	}
	logout := inactive >= m.cfg.Timeout
	if logout {
		m.loggedOut = true
		m.stopLocked()
	}
	m.mu.Unlock()

	if warn && m.hooks.Warn != nil {
		if remaining < 0 {
			remaining = 0
		}
		m.hooks.Warn(remaining)
	}
	if logout {
		if m.hooks.Logout != nil {
			m.hooks.Logout(ctx)
		}
		return
	}

	if m.hooks.Validate != nil && !m.hooks.Validate(ctx) {
		m.Stop()
		if m.hooks.Expired != nil {
			m.hooks.Expired()
		}
	}
}

// Start runs Check every CheckInterval until the monitor stops or ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	interval := m.cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.Stop()
				return
			case <-m.done:
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Stop is idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.done)
}

// Done is closed once the monitor stops.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.cfg.Timeout - m.clock.Now().Sub(m.lastActivity)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		LastActivity: m.lastActivity,
		Remaining:    remaining,
		Warning:      m.warningShown,
		Stopped:      m.stopped,
		LoggedOut:    m.loggedOut,
	}
}
