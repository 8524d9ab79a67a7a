package util

import "time"

// Clock is the time source for anything that stamps wall-clock time, such
// as generated order ids.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always reports T. Tests and deterministic replays use it.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// StepClock starts at T and advances by Step on every call.
type StepClock struct {
	T    time.Time
	Step time.Duration
}

func (c *StepClock) Now() time.Time {
	now := c.T
	c.T = c.T.Add(c.Step)
	return now
}
