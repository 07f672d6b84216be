// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/tastecert-backend/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	visitors    map[string]*visitor
	mtx         sync.Mutex
	rate        rate.Limit
	burst       int
	lastCleanup time.Time
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		visitors:    make(map[string]*visitor),
		rate:        r,
		burst:       b,
		lastCleanup: time.Now(),
	}
}

// cleanupVisitors drops visitors idle for three minutes. Callers hold mtx.
func (rl *RateLimiter) cleanupVisitors(now time.Time) {
	if now.Sub(rl.lastCleanup) < time.Minute {
		return
	}
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > 3*time.Minute {
			delete(rl.visitors, ip)
		}
	}
	rl.lastCleanup = now
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	now := time.Now()
	rl.cleanupVisitors(now)

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = &visitor{limiter, now}
		return limiter
	}

	v.lastSeen = now
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getVisitor(c.ClientIP()).Allow() {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED",
				"Rate limit exceeded. Please try again later.", nil)
			return
		}

		c.Next()
	}
}

// RateLimits groups the limiters applied to the route tree.
type RateLimits struct {
	General *RateLimiter
	Auth    *RateLimiter
	Upload  *RateLimiter
}

func DefaultRateLimits() RateLimits {
	return RateLimits{
		General: NewRateLimiter(rate.Every(100*time.Millisecond), 20), // 10 requests per second
		Auth:    NewRateLimiter(rate.Every(12*time.Second), 5),        // 5 auth requests per minute
		Upload:  NewRateLimiter(rate.Every(6*time.Second), 10),        // 10 uploads per minute
	}
}
