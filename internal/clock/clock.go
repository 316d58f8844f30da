package clock

import "time"

// #region clock-interface
// Clock supplies the current time. The engine and scheduler read time only
// through this interface so debounce and pacing are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// #endregion clock-interface

// #region system
// System is the wall-clock implementation.
type System struct{}

// Now returns the current wall-clock time in UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// #endregion system

// #region manual
// Manual is a hand-advanced clock for tests and replay harnesses.
type Manual struct {
	t time.Time
}

// NewManual creates a Manual clock starting at t.
func NewManual(t time.Time) *Manual {
	return &Manual{t: t}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	return m.t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.t = m.t.Add(d)
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.t = t
}

// #endregion manual
