package domain

import "time"

// Window is one fixed-window counter as returned by an atomic increment.
type Window struct {
	Key         string
	Count       int64
	WindowStart time.Time
	Length      time.Duration
}

// End is the first instant after the window.
func (w Window) End() time.Time {
	return w.WindowStart.Add(w.Length)
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration // zero when allowed
	ResetAt    time.Time

	// Degraded is set when the shared store was unreachable and the decision
	// came from the in-process fallback.
	Degraded bool
}
