package ingestion

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4)

	tracker.Start()
	tracker.Increment(1)
	assert.Contains(t, buf.String(), "1/4 files (25.0%)")

	tracker.Increment(3)
	assert.Contains(t, buf.String(), "4/4 files (100.0%)")
	assert.GreaterOrEqual(t, tracker.Elapsed(), time.Duration(0))
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Start()
	tracker.Increment(3)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "10/10", "finish should set to total")
	assert.Contains(t, output, "\n", "finish should print newline")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0)

	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0", "should handle zero total")
}

func TestProgressTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2)

	tracker.Start()
	tracker.Increment(5)

	assert.Contains(t, buf.String(), "2/2")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2)

	tracker.Increment(1)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}
