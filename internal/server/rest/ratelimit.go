package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP: limit requests per
// window, refilled evenly.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		idle:     window,
		now:      time.Now,
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// cleanup drops visitors idle for longer than the window until ctx ends.
func (l *ipLimiter) cleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.sweep()
		}
	}
}

func (l *ipLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, ip)
		}
	}
}

func tooManyRequests(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": msg})
}

// limitAll counts every request.
func (l *ipLimiter) limitAll(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).AllowN(l.now(), 1) {
			tooManyRequests(c, msg)
			return
		}
		c.Next()
	}
}

// limitFailures only counts requests answered with an error status, so
// successful logins never use up the budget.
func (l *ipLimiter) limitFailures(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := l.get(c.ClientIP())
		if lim.TokensAt(l.now()) < 1 {
			tooManyRequests(c, msg)
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			lim.AllowN(l.now(), 1)
		}
	}
}
