package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiterPool hands out one token bucket per client IP and drops
// entries that have been idle longer than limiterIdleTTL.
type ipLimiterPool struct {
	mu             sync.Mutex
	entries        map[string]*limiterEntry
	requestsPerMin int
	lastSweep      time.Time
}

func newIPLimiterPool(requestsPerMin int) *ipLimiterPool {
	return &ipLimiterPool{
		entries:        make(map[string]*limiterEntry),
		requestsPerMin: requestsPerMin,
		lastSweep:      time.Now(),
	}
}

func (p *ipLimiterPool) get(ip string, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.Sub(p.lastSweep) >= limiterIdleTTL {
		p.sweepLocked(now)
		p.lastSweep = now
	}

	e, ok := p.entries[ip]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(p.requestsPerMin)/60.0), p.requestsPerMin),
		}
		p.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (p *ipLimiterPool) sweepLocked(now time.Time) {
	for ip, e := range p.entries {
		if now.Sub(e.lastSeen) >= limiterIdleTTL {
			delete(p.entries, ip)
		}
	}
}

func (p *ipLimiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// KioskRateLimit limits unauthenticated kiosk traffic per client IP.
func KioskRateLimit(requestsPerMin int) gin.HandlerFunc {
	pool := newIPLimiterPool(requestsPerMin)

	return func(c *gin.Context) {
		if !pool.get(c.ClientIP(), time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
