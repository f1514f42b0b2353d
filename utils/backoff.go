package utils

import (
	"math/rand"
	"time"
)

// Backoff returns the pause before retry number attempt (0-based): base
// doubled per attempt, capped at max, with +/-50% jitter so concurrent
// runs hitting the same upstream do not retry in lockstep.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	if max < base {
		max = base
	}
	d := base << attempt
	if d > max || d <= 0 {
		d = max
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
