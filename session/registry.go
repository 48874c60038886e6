package session

import (
	"context"
	"sync"
	"time"

	"catalogadmin/clock"
)

// Registry keeps one Monitor per session id. Monitors remove themselves
// when they log out or find their session expired.
type Registry struct {
	cfg   Config
	clock clock.Clock

	mu       sync.Mutex
	monitors map[string]*Monitor
}

func NewRegistry(cfg Config, clk clock.Clock) *Registry {
	return &Registry{cfg: cfg, clock: clock.OrReal(clk), monitors: make(map[string]*Monitor)}
}

// Start replaces any monitor already running for sessionID.
func (r *Registry) Start(ctx context.Context, sessionID string, hooks Hooks) *Monitor {
	m := r.newMonitor(sessionID, hooks)

	r.mu.Lock()
	if old, ok := r.monitors[sessionID]; ok {
		old.Stop()
	}
	r.monitors[sessionID] = m
	r.mu.Unlock()

	m.Start(ctx)
	return m
}

// Resume starts a monitor for sessionID only when none runs yet, with its
// idle clock counted from lastActivity. It picks up sessions created by
// another process or before a restart. started is false when a monitor
// already existed.
func (r *Registry) Resume(ctx context.Context, sessionID string, lastActivity time.Time, hooks Hooks) (m *Monitor, started bool) {
	r.mu.Lock()
	if cur, ok := r.monitors[sessionID]; ok {
		r.mu.Unlock()
		return cur, false
	}
	m = r.newMonitor(sessionID, hooks)
	if !lastActivity.IsZero() && lastActivity.Before(m.lastActivity) {
		m.lastActivity = lastActivity
	}
	r.monitors[sessionID] = m
	r.mu.Unlock()

	m.Start(ctx)
	return m, true
}

func (r *Registry) newMonitor(sessionID string, hooks Hooks) *Monitor {
	var m *Monitor
	logout, expired := hooks.Logout, hooks.Expired
	hooks.Logout = func(ctx context.Context) {
		r.remove(sessionID, m)
		if logout != nil {
			logout(ctx)
		}
	}
	hooks.Expired = func() {
		r.remove(sessionID, m)
		if expired != nil {
			expired()
		}
	}
	m = NewMonitor(r.cfg, hooks, r.clock)
	return m
}

func (r *Registry) Get(sessionID string) (*Monitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[sessionID]
	return m, ok
}

// Touch reports false when no monitor runs for sessionID.
func (r *Registry) Touch(sessionID string) bool {
	m, ok := r.Get(sessionID)
	if !ok {
		return false
	}
	m.Touch()
	return true
}

func (r *Registry) Status(sessionID string) (Status, bool) {
	m, ok := r.Get(sessionID)
	if !ok {
		return Status{}, false
	}
	return m.Status(), true
}

func (r *Registry) Stop(sessionID string) {
	r.mu.Lock()
	m, ok := r.monitors[sessionID]
	delete(r.monitors, sessionID)
	r.mu.Unlock()
	if ok {
		m.Stop()
	}
}

func (r *Registry) StopAll() {
	r.mu.Lock()
	monitors := r.monitors
	r.monitors = make(map[string]*Monitor)
	r.mu.Unlock()
	for _, m := range monitors {
		m.Stop()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.monitors)
}

func (r *Registry) Config() Config { return r.cfg }

func (r *Registry) remove(sessionID string, m *Monitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.monitors[sessionID]; ok && cur == m {
		delete(r.monitors, sessionID)
	}
}
