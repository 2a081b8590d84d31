package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdle       = 10 * time.Minute
	limiterMaxEntries = 4096
)

// ipLimiter keeps one token bucket per client address. Buckets idle past
// limiterIdle are reclaimed once the table grows large.
type ipLimiter struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	perIP map[string]*ipBucket
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newIPLimiter(r rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{limit: r, burst: burst, perIP: make(map[string]*ipBucket)}
}

func (l *ipLimiter) allow(ip string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.perIP[ip]
	if !ok {
		if len(l.perIP) >= limiterMaxEntries {
			l.prune(now)
		}
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.perIP[ip] = b
	}
	b.seen = now
	return b.lim.Allow()
}

func (l *ipLimiter) prune(now time.Time) {
	for ip, b := range l.perIP {
		if now.Sub(b.seen) > limiterIdle {
			delete(l.perIP, ip)
		}
	}
}
