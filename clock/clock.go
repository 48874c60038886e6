// Package clock abstracts time.Now so that limiter windows, lockouts and
// idle timeouts can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is implemented by anything that can tell the current time.
type Clock interface {
	Now() time.Time
}

// Real implements Clock using time.Now().
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Fake is a manually driven Clock.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// OrReal returns c, or Real when c is nil.
func OrReal(c Clock) Clock {
	if c == nil {
		return Real{}
	}
	return c
}
