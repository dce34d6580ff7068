package service

import (
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"golang.org/x/time/rate"
)

const localCleanupInterval = 5 * time.Minute

// localLimiter is the in-process stand-in used while the shared store is
// unreachable. Each key gets a token bucket refilling maxCount tokens per
// window, so a single instance never admits more than the shared quota.
type localLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter

	mu          sync.Mutex
	lastCleanup time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{}
}

func (l *localLimiter) check(key string, cost, maxCount int64, window time.Duration, now time.Time) domain.Decision {
	burst := int(maxCount)
	lim := l.getLimiter(key+"|"+strconv.FormatInt(maxCount, 10)+"|"+window.String(), window, burst, now)

	d := domain.Decision{
		Limit:    maxCount,
		ResetAt:  now.Add(window),
		Degraded: true,
	}

	r := lim.ReserveN(now, int(cost))
	if !r.OK() {
		// cost exceeds the bucket size and can never be admitted
		d.Count = cost
		d.RetryAfter = window
		return d
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		d.Count = maxCount + cost
		d.RetryAfter = delay
		return d
	}

	remaining := max(int64(lim.TokensAt(now)), 0)
	d.Allowed = true
	d.Remaining = remaining
	d.Count = maxCount - remaining
	return d
}

func (l *localLimiter) getLimiter(key string, window time.Duration, burst int, now time.Time) *rate.Limiter {
	if lim, ok := l.limiters.Load(key); ok {
		return lim.(*rate.Limiter)
	}

	l.maybeCleanup(now)

	every := rate.Limit(float64(burst) / window.Seconds())
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(every, burst))
	return actual.(*rate.Limiter)
}

// maybeCleanup drops buckets that refilled completely, those keys have been
// idle for at least a window.
func (l *localLimiter) maybeCleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) < localCleanupInterval {
		return
	}
	l.lastCleanup = now

	l.limiters.Range(func(key, value any) bool {
		lim := value.(*rate.Limiter)
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *localLimiter) size() int {
	n := 0
	l.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
