package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	fake "k8s.io/utils/clock/testing"

	"github.com/warren2314/OSS-Checker/pkg/ratelimit"
)

func TestLimiter_Interval(t *testing.T) {
	tests := []struct {
		name           string
		callsPerMinute int
		want           time.Duration
	}{
		{name: "default", callsPerMinute: ratelimit.DefaultCallsPerMinute, want: 500 * time.Millisecond},
		{name: "one per minute", callsPerMinute: 1, want: time.Minute},
		{name: "disabled", callsPerMinute: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ratelimit.New(tt.callsPerMinute).Interval())
		})
	}
}

func TestLimiter_WaitForSlot(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		calls int
		want  time.Duration
	}{
		{name: "single call is free", calls: 1, want: 0},
		{name: "two calls", calls: 2, want: 500 * time.Millisecond},
		{name: "ten calls", calls: 10, want: 9 * 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := fake.NewFakeClock(start)
			l := ratelimit.New(120, ratelimit.WithClock(clk))
			for i := 0; i < tt.calls; i++ {
				l.WaitForSlot()
			}
			assert.Equal(t, tt.want, clk.Since(start))
		})
	}
}

func TestLimiter_WaitForSlot_ElapsedWork(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clk := fake.NewFakeClock(start)
	l := ratelimit.New(120, ratelimit.WithClock(clk))

	l.WaitForSlot()
	// a slow request already used up part of the interval
	clk.Step(300 * time.Millisecond)
	l.WaitForSlot()
	assert.Equal(t, 500*time.Millisecond, clk.Since(start))

	// a request slower than the interval needs no extra delay
	clk.Step(2 * time.Second)
	l.WaitForSlot()
	assert.Equal(t, 2500*time.Millisecond, clk.Since(start))
}

func TestLimiter_Disabled(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clk := fake.NewFakeClock(start)
	l := ratelimit.New(0, ratelimit.WithClock(clk))
	for i := 0; i < 5; i++ {
		l.WaitForSlot()
	}
	assert.Equal(t, time.Duration(0), clk.Since(start))
}
