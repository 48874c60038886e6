package session

import (
	"context"
	"testing"
	"time"

	"catalogadmin/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewFake(t0)
	reg := NewRegistry(cfg, clk)

	reg.Start(ctx, "s1", Hooks{})
	reg.Start(ctx, "s2", Hooks{})
	assert.Equal(t, 2, reg.Len())

	clk.Advance(10 * time.Minute)
	assert.True(t, reg.Touch("s1"))
	assert.False(t, reg.Touch("missing"))

	st, ok := reg.Status("s1")
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, st.Remaining)

	st, ok = reg.Status("s2")
	require.True(t, ok)
	assert.Equal(t, 20*time.Minute, st.Remaining)

	reg.Stop("s1")
	assert.Equal(t, 1, reg.Len())

	reg.StopAll()
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryRemovesLoggedOutMonitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewFake(t0)
	reg := NewRegistry(cfg, clk)

	loggedOut := make(chan struct{}, 1)
	m := reg.Start(ctx, "s1", Hooks{Logout: func(context.Context) { loggedOut <- struct{}{} }})

	clk.Advance(cfg.Timeout)
	m.Check(ctx)

	select {
	case <-loggedOut:
	case <-time.After(time.Second):
		t.Fatal("logout hook not called")
	}
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryStartReplacesMonitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := NewRegistry(cfg, clock.NewFake(t0))
	first := reg.Start(ctx, "s1", Hooks{})
	second := reg.Start(ctx, "s1", Hooks{})

	assert.True(t, first.Status().Stopped)
	assert.False(t, second.Status().Stopped)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryResumeSeedsLastActivity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewFake(t0)
	reg := NewRegistry(cfg, clk)

	m, started := reg.Resume(ctx, "s1", t0.Add(-10*time.Minute), Hooks{})
	require.True(t, started)
	assert.Equal(t, 20*time.Minute, m.Status().Remaining)

	// A running monitor is kept as is.
	again, started := reg.Resume(ctx, "s1", t0.Add(-25*time.Minute), Hooks{})
	assert.False(t, started)
	assert.Same(t, m, again)
	assert.Equal(t, 1, reg.Len())

	// A future timestamp never extends the idle window.
	m2, _ := reg.Resume(ctx, "s2", t0.Add(time.Hour), Hooks{})
	assert.Equal(t, cfg.Timeout, m2.Status().Remaining)
}
