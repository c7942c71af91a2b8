package ts

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock wraps Clock so that the Now method is a little more convenient.
type Clock struct {
	realClock clockwork.Clock
}

func NewRealClock() *Clock {
	return NewClock(clockwork.NewRealClock())
}

// NewClock wraps c, which in tests is a clockwork.FakeClock.
func NewClock(c clockwork.Clock) *Clock {
	return &Clock{realClock: c}
}

// Now provides a timestamp truncated to the second, in UTC, which is what
// gets stored.
func (c *Clock) Now() time.Time {
	return c.realClock.Now().UTC().Truncate(time.Second)
}

func (c *Clock) RealClock() clockwork.Clock {
	return c.realClock
}
