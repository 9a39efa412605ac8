// Package common holds small helpers shared by the scan stages and the
// commands.
package common

import (
	"fmt"
	"time"
)

// Timer measures one stage. The first Stop fixes the duration.
type Timer struct {
	name     string
	start    time.Time
	duration time.Duration
	stopped  bool
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer starts a timer for the named stage.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed time. Later calls return the first
// result.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.duration = time.Since(t.start)
		t.stopped = true
	}
	return t.duration
}

// Elapsed is the running time, or the recorded duration once stopped.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.duration
	}
	return time.Since(t.start)
}

// Duration returns the recorded duration, zero before Stop.
func (t *Timer) Duration() time.Duration { return t.duration }

func (t *Timer) Name() string { return t.name }

// LogAttrs returns slog key/value pairs for the timer.
func (t *Timer) LogAttrs() []any {
	return []any{"stage", t.name, "elapsed_ms", t.Elapsed().Milliseconds()}
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.Elapsed())
	}
	return t.Elapsed().String()
}
