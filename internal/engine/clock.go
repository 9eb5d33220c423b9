package engine

// Clock is the logical clock that stamps cascade transitions.
//
// Each solve owns a fresh Clock, so trace sequence numbers start at 1 for
// every solve and never depend on wall time or on other solves. A Clock is
// not safe for concurrent use; a cascade only ever advances its own.
type Clock struct {
	seq int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq
}
