package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"catalogadmin/clock"
	"catalogadmin/model"
	"catalogadmin/utils"

	"github.com/google/uuid"
)

const maxAuditField = 80

// AuditSink persists audit events.
type AuditSink interface {
	InsertAudit(ctx context.Context, event *model.AuditEvent) error
}

// AuditLogger writes audit events from a background worker. Log never
// blocks and never reports an error: a full queue drops the event and a
// failed write is logged and counted.
type AuditLogger struct {
	sink         AuditSink
	clock        clock.Clock
	logger       *slog.Logger
	writeTimeout time.Duration

	queue     chan model.AuditEvent
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewAuditLogger(sink AuditSink, clk clock.Clock, logger *slog.Logger, buffer int) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	a := &AuditLogger{
		sink:         sink,
		clock:        clock.OrReal(clk),
		logger:       logger,
		writeTimeout: 5 * time.Second,
		queue:        make(chan model.AuditEvent, buffer),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *AuditLogger) Log(event model.AuditEvent) {
	event.Action = truncate(event.Action, maxAuditField)
	event.Entity = truncate(event.Entity, maxAuditField)
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = a.clock.Now()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		utils.TrackAuditEvent("dropped")
		return
	}
	select {
	case a.queue <- event:
	default:
		utils.TrackAuditEvent("dropped")
		a.logger.Warn("audit queue full, dropping event", "action", event.Action)
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to
// end.
func (a *AuditLogger) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *AuditLogger) run() {
	defer a.wg.Done()
	for event := range a.queue {
		a.write(event)
	}
}

func (a *AuditLogger) write(event model.AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			utils.TrackAuditEvent("failed")
			a.logger.Warn("audit sink panicked", "action", event.Action, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()

	if err := a.sink.InsertAudit(ctx, &event); err != nil {
		utils.TrackAuditEvent("failed")
		a.logger.Warn("audit log failed", "action", event.Action, "error", err)
		return
	}
	utils.TrackAuditEvent("written")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
