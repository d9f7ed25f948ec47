package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterPool hands out one token bucket per client address.
type limiterPool struct {
	mu       sync.Mutex
	perMin   int
	limiters map[string]*limiterEntry
	ttl      time.Duration
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(perMinute int) *limiterPool {
	return &limiterPool{
		perMin:   perMinute,
		limiters: make(map[string]*limiterEntry),
		ttl:      10 * time.Minute,
	}
}

// allow reports whether the client behind r may proceed. A zero rate
// disables limiting.
func (p *limiterPool) allow(r *http.Request) bool {
	if p.perMin <= 0 {
		return true
	}
	key, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		key = r.RemoteAddr
	}
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.limiters {
		if now.Sub(e.lastSeen) > p.ttl {
			delete(p.limiters, k)
		}
	}
	e, ok := p.limiters[key]
	if !ok {
		e = &limiterEntry{l: rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.perMin)), p.perMin)}
		p.limiters[key] = e
	}
	e.lastSeen = now
	return e.l.Allow()
}
