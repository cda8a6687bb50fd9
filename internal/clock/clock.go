package clock

import (
	"sync"
	"time"
)

// DateLayout is the calendar date format used for rollover and partitioning.
const DateLayout = "2006-01-02"

// Clock provides the two independent time sources the accounting core needs.
// Now is the wall clock, used for calendar dates and journal timestamps.
// Monotonic is an always-increasing reading used only to measure elapsed
// time; it is unaffected by wall clock adjustments.
type Clock interface {
	Now() time.Time
	Monotonic() time.Duration
}

// Today returns the local calendar date of c formatted with DateLayout.
func Today(c Clock) string {
	return c.Now().Format(DateLayout)
}

// RealClock provides actual system time.
type RealClock struct {
	start time.Time
}

// NewRealClock returns a clock whose monotonic reading starts at zero.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

// Now returns the current system time.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Monotonic returns the time elapsed since the clock was created. time.Since
// uses the monotonic clock reading carried by c.start.
func (c *RealClock) Monotonic() time.Duration {
	return time.Since(c.start)
}

// ManualClock is a controllable clock for tests. Wall and monotonic time are
// advanced independently so that date changes and elapsed time can be
// exercised separately.
type ManualClock struct {
	mu        sync.Mutex
	wall      time.Time
	monotonic time.Duration
}

// NewManualClock returns a manual clock set to the given wall time.
func NewManualClock(wall time.Time) *ManualClock {
	return &ManualClock{wall: wall}
}

// Now returns the manual wall time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wall
}

// Monotonic returns the manual monotonic reading.
func (c *ManualClock) Monotonic() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monotonic
}

// Advance moves both the wall clock and the monotonic reading forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wall = c.wall.Add(d)
	c.monotonic += d
}

// SetWall jumps the wall clock without touching the monotonic reading, the
// way an NTP correction or a manual date change would.
func (c *ManualClock) SetWall(wall time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wall = wall
}
