package ratelimit

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// DefaultCallsPerMinute matches the OSS Index quota for authenticated users.
const DefaultCallsPerMinute = 120

// Limiter paces calls so consecutive slots are at least Interval apart.
// It behaves as a token bucket of capacity one that refills every Interval.
type Limiter struct {
	mu       sync.Mutex
	clock    clock.Clock
	interval time.Duration
	last     time.Time
	started  bool
}

type Option func(*Limiter)

func WithClock(c clock.Clock) Option {
	return func(l *Limiter) {
		l.clock = c
	}
}

// New returns a limiter allowing callsPerMinute slots per minute.
// A non-positive rate disables pacing.
func New(callsPerMinute int, opts ...Option) *Limiter {
	var interval time.Duration
	if callsPerMinute > 0 {
		interval = time.Minute / time.Duration(callsPerMinute)
	}
	l := &Limiter{
		clock:    clock.RealClock{},
		interval: interval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Interval returns the minimum spacing between calls.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// WaitForSlot blocks until the next call may be issued. The first call
// returns immediately.
func (l *Limiter) WaitForSlot() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started && l.interval > 0 {
		if wait := l.last.Add(l.interval).Sub(l.clock.Now()); wait > 0 {
			l.clock.Sleep(wait)
		}
	}
	l.last = l.clock.Now()
	l.started = true
}
