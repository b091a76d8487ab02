package syncqueue

import "time"

// Backoff is an explicit retry schedule: attempt count plus next-eligible
// time, queried by the periodic sync tick. No timer chains, so it is
// testable with an injected clock.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration

	attempts int
	nextAt   time.Time
}

func NewBackoff(base, cap time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if cap <= 0 {
		cap = 30 * time.Second
	}
	return &Backoff{Base: base, Cap: cap}
}

// Fail records a failed sync attempt and pushes the next-eligible time out
// exponentially (base·2^(n-1), capped).
func (b *Backoff) Fail(now time.Time) {
	b.attempts++
	b.nextAt = now.Add(b.Delay())
}

// Delay is the wait implied by the current attempt count.
func (b *Backoff) Delay() time.Duration {
	if b.attempts <= 0 {
		return 0
	}
	d := b.Base << (b.attempts - 1)
	if d <= 0 || d > b.Cap {
		return b.Cap
	}
	return d
}

// Ready reports whether a new sync attempt is eligible at now.
func (b *Backoff) Ready(now time.Time) bool {
	return !now.Before(b.nextAt)
}

// Reset clears the schedule after a fully successful sync pass.
func (b *Backoff) Reset() {
	b.attempts = 0
	b.nextAt = time.Time{}
}

func (b *Backoff) Attempts() int { return b.attempts }
