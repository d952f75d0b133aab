package loop

import "time"

// Interval turns a millisecond tick sequence into fixed-period expirations.
//
// It is not safe for concurrent use; the owner goroutine advances it.
type Interval struct {
	period uint64
	last   uint64
	primed bool
}

// NewInterval returns an interval that expires every d (rounded down to whole
// milliseconds, minimum 1ms).
func NewInterval(d time.Duration) *Interval {
	ms := uint64(d / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	return &Interval{period: ms}
}

// Period returns the interval length.
func (iv *Interval) Period() time.Duration {
	return time.Duration(iv.period) * time.Millisecond
}

// Advance records the latest tick and returns how many periods elapsed since
// the previous expiration. The first call only establishes the origin.
func (iv *Interval) Advance(tick uint64) int {
	if !iv.primed {
		iv.primed = true
		iv.last = tick
		return 0
	}
	if tick <= iv.last {
		return 0
	}
	n := (tick - iv.last) / iv.period
	iv.last += n * iv.period
	return int(n)
}
