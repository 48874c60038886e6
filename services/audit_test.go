package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"catalogadmin/clock"
	"catalogadmin/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu     sync.Mutex
	events []model.AuditEvent
	err    error
	block  chan struct{}
}

func (s *memorySink) InsertAudit(_ context.Context, e *model.AuditEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *memorySink) all() []model.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditEvent(nil), s.events...)
}

func TestAuditLoggerWritesAndFills(t *testing.T) {
	sink := &memorySink{}
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	a := NewAuditLogger(sink, clock.NewFake(now), nil, 8)

	a.Log(model.AuditEvent{Action: strings.Repeat("x", 100), Entity: "page", UserID: "u1"})
	require.NoError(t, a.Close(context.Background()))

	events := sink.all()
	require.Len(t, events, 1)
	assert.Len(t, events[0].Action, 80)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, now, events[0].Timestamp)
}

func TestAuditLoggerSwallowsSinkErrors(t *testing.T) {
	sink := &memorySink{err: errors.New("db down")}
	a := NewAuditLogger(sink, nil, nil, 8)

	assert.NotPanics(t, func() {
		a.Log(model.AuditEvent{Action: "login"})
	})
	require.NoError(t, a.Close(context.Background()))
	assert.Empty(t, sink.all())
}

func TestAuditLoggerNeverBlocks(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	a := NewAuditLogger(sink, nil, nil, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			a.Log(model.AuditEvent{Action: "access_denied"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Log blocked on a stalled sink")
	}

	close(sink.block)
	require.NoError(t, a.Close(context.Background()))
	assert.LessOrEqual(t, len(sink.all()), 2)
}

func TestAuditLoggerAfterClose(t *testing.T) {
	sink := &memorySink{}
	a := NewAuditLogger(sink, nil, nil, 4)
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))

	a.Log(model.AuditEvent{Action: "logout"})
	assert.Empty(t, sink.all())
}
