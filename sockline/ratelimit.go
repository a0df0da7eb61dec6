package sockline

import "time"

// rateLimiter admits sends on a sliding window: at most limit.Count
// sends within any limit.Window interval. It is touched only from the
// client's event loop and needs no lock.
type rateLimiter struct {
	limit   RateLimit
	clock   Clock
	history []time.Time
}

func newRateLimiter(limit RateLimit, clock Clock) *rateLimiter {
	return &rateLimiter{limit: limit, clock: clock}
}

func (limiter *rateLimiter) enabled() bool {
	return limiter.limit.Count > 0 && limiter.limit.Window > 0
}

// Allow reports whether a send is admitted now, recording it in the
// window history when it is.
func (limiter *rateLimiter) Allow() bool {
	if !limiter.enabled() {
		return true
	}

	now := limiter.clock.Now()
	limiter.prune(now)
	if len(limiter.history) >= limiter.limit.Count {
		return false
	}
	limiter.history = append(limiter.history, now)
	return true
}

// Release gives back the most recently recorded slot, for a send that
// was admitted but never made it onto the wire. The retry of that
// payload must not cost a second slot.
func (limiter *rateLimiter) Release() {
	if len(limiter.history) > 0 {
		limiter.history = limiter.history[:len(limiter.history)-1]
	}
}

// NextWindow returns how long until the oldest recorded send leaves the
// window, freeing a slot. The second return is false when no send is
// recorded.
func (limiter *rateLimiter) NextWindow() (time.Duration, bool) {
	if !limiter.enabled() || len(limiter.history) == 0 {
		return 0, false
	}
	wait := limiter.limit.Window - limiter.clock.Now().Sub(limiter.history[0])
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

func (limiter *rateLimiter) prune(now time.Time) {
	cutoff := now.Add(-limiter.limit.Window)
	kept := limiter.history[:0]
	for _, at := range limiter.history {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	limiter.history = kept
}
