package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/response"
)

type visitor struct {
	tokens   int
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket. Each client starts with a full
// bucket of `rate` tokens; one token refills every `interval`.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	interval time.Duration
}

// NewRateLimiter allows `rate` requests per `interval` per client IP and
// starts a background sweep that evicts idle buckets.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
	}

	go func() {
		for range time.Tick(time.Minute) {
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

// Middleware enforces the limit, answering 429 once a bucket runs dry.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		v, ok := rl.visitors[ip]
		if !ok {
			v = &visitor{tokens: rl.rate, lastSeen: time.Now()}
			rl.visitors[ip] = v
		} else {
			refill := int(time.Since(v.lastSeen)/rl.interval) * rl.rate
			if refill > 0 {
				v.tokens += refill
				if v.tokens > rl.rate {
					v.tokens = rl.rate
				}
				v.lastSeen = time.Now()
			}
		}

		if v.tokens <= 0 {
			rl.mu.Unlock()
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		v.tokens--
		rl.mu.Unlock()

		c.Next()
	}
}
