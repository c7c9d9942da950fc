package clock

import "time"

// Cursor tracks the instant of the last emitted event so that each new event
// can be stamped with the delay since its predecessor.
type Cursor struct {
	clock Clock
	last  time.Time
}

func NewCursor(c Clock) *Cursor {
	return &Cursor{clock: c, last: c.Now()}
}

// Reset rebases the cursor to now.
func (c *Cursor) Reset() {
	c.last = c.clock.Now()
}

// Mark returns the time elapsed since the previous mark (or reset) and moves
// the cursor to now. The result is never negative.
func (c *Cursor) Mark() time.Duration {
	now := c.clock.Now()
	delta := now.Sub(c.last)
	c.last = now
	if delta < 0 {
		return 0
	}
	return delta
}

// Elapsed reports the time since the last mark without moving the cursor.
func (c *Cursor) Elapsed() time.Duration {
	if d := c.clock.Now().Sub(c.last); d > 0 {
		return d
	}
	return 0
}
