package ai

import (
	"sync"
	"time"

	"github.com/onnwee/murphbot/telemetry"
)

// slidingLimiter enforces a global and a per-user request budget over a rolling
// window. It is the same throttling shape as the cooldown manager, but counts
// requests within a window instead of spacing individual invocations.
type slidingLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	global   int
	perUser  int
	requests []time.Time
	byUser   map[string][]time.Time
	now      func() time.Time
}

func newSlidingLimiter(window time.Duration, global, perUser int) *slidingLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if global <= 0 {
		global = 20
	}
	if perUser <= 0 {
		perUser = 3
	}
	return &slidingLimiter{
		window:  window,
		global:  global,
		perUser: perUser,
		byUser:  make(map[string][]time.Time),
		now:     time.Now,
	}
}

// allow reports whether a request by user may proceed, recording it if so.
func (l *slidingLimiter) allow(user string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.requests = prune(l.requests, now, l.window)
	if len(l.requests) >= l.global {
		if telemetry.AIRateLimited != nil {
			telemetry.AIRateLimited.Inc()
		}
		return false
	}

	userReqs := prune(l.byUser[user], now, l.window)
	if len(userReqs) >= l.perUser {
		l.byUser[user] = userReqs
		if telemetry.AIRateLimited != nil {
			telemetry.AIRateLimited.Inc()
		}
		return false
	}

	l.requests = append(l.requests, now)
	l.byUser[user] = append(userReqs, now)
	return true
}

func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	return kept
}
