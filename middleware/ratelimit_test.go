package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiterPoolEvictsIdleEntries(t *testing.T) {
	pool := newIPLimiterPool(10)
	start := time.Now()

	pool.get("10.0.0.1", start)
	pool.get("10.0.0.2", start)
	assert.Equal(t, 2, pool.size())

	// a later request from one IP sweeps out the idle ones
	later := start.Add(limiterIdleTTL + time.Minute)
	pool.get("10.0.0.3", later)
	assert.Equal(t, 1, pool.size())
}

func TestIPLimiterPoolKeepsActiveEntries(t *testing.T) {
	pool := newIPLimiterPool(10)
	start := time.Now()

	pool.get("10.0.0.1", start)
	pool.get("10.0.0.1", start.Add(limiterIdleTTL-time.Minute))

	pool.get("10.0.0.2", start.Add(limiterIdleTTL+time.Second))
	assert.Equal(t, 2, pool.size())
}

func TestIPLimiterPoolReusesLimiterPerIP(t *testing.T) {
	pool := newIPLimiterPool(10)
	now := time.Now()

	a := pool.get("10.0.0.1", now)
	b := pool.get("10.0.0.1", now)
	assert.Same(t, a, b)

	c := pool.get("10.0.0.2", now)
	assert.NotSame(t, a, c)
}
