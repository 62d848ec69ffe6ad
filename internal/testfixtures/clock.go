// Package testfixtures provides deterministic clocks, identifiers, records and
// wired services for tests.
package testfixtures

import (
	"sync"
	"time"
)

// referenceWeek starts on Monday 2024-01-01 00:00 UTC. Fixture schedules are
// placed inside this week so weekday arithmetic stays obvious.
var referenceWeek = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// ReferenceTime returns the start of the reference week.
func ReferenceTime() time.Time {
	return referenceWeek
}

// At returns the instant on the given weekday of the reference week at
// hour:minute UTC.
func At(day time.Weekday, hour, minute int) time.Time {
	offset := (int(day) - int(time.Monday) + 7) % 7
	return referenceWeek.AddDate(0, 0, offset).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// Clock is a controllable time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock set to start, or to ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection; a nil clock falls back to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
