package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("ocr")
	assert.Equal(t, "ocr", timer.Name())
	assert.Zero(t, timer.Duration())

	time.Sleep(10 * time.Millisecond)

	d := timer.Stop()
	assert.GreaterOrEqual(t, d, 10*time.Millisecond)
	assert.Equal(t, d, timer.Duration())
	assert.Equal(t, d, timer.Elapsed())

	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, d, timer.Stop(), "first stop wins")

	assert.Contains(t, timer.String(), "ocr: ")
	attrs := timer.LogAttrs()
	assert.Equal(t, []any{"stage", "ocr", "elapsed_ms", d.Milliseconds()}, attrs)
}

func TestUnnamedTimer(t *testing.T) {
	timer := NewTimer()
	assert.Empty(t, timer.Name())
	assert.GreaterOrEqual(t, timer.Elapsed(), time.Duration(0))
	timer.Stop()
	assert.NotContains(t, timer.String(), ":")
}
