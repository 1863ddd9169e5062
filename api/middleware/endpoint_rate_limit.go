package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// EndpointRateLimiter applies per-route limits on top of the global one.
// Buckets are keyed by client IP plus the route's :id parameter, so
// retraining one model does not spend the budget of another.
type EndpointRateLimiter struct {
	routes map[string]*RateLimiter
	mu     sync.RWMutex
}

func NewEndpointRateLimiter() *EndpointRateLimiter {
	return &EndpointRateLimiter{
		routes: make(map[string]*RateLimiter),
	}
}

// Limit sets the budget of a route pattern as registered with gin, e.g.
// "/models/:id/train". A non-positive limit removes the route's limit.
func (erl *EndpointRateLimiter) Limit(route string, limit int, window time.Duration) {
	erl.mu.Lock()
	defer erl.mu.Unlock()
	if limit <= 0 {
		delete(erl.routes, route)
		return
	}
	erl.routes[route] = NewRateLimiter(limit, window)
}

func (erl *EndpointRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		erl.mu.RLock()
		limiter, ok := erl.routes[c.FullPath()]
		erl.mu.RUnlock()
		if !ok {
			c.Next()
			return
		}

		key := c.ClientIP()
		if id := c.Param("id"); id != "" {
			key += "|" + id
		}
		if !limiter.Allow(key) {
			retry := int(limiter.window.Seconds() / float64(limiter.limit))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for this endpoint",
				"model_id":    c.Param("id"),
				"retry_after": retry,
			})
			return
		}
		c.Next()
	}
}

// AuthRateLimiter allows 5 login attempts per minute per IP.
func AuthRateLimiter() gin.HandlerFunc {
	limiter := NewRateLimiter(5, time.Minute)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many authentication attempts, please try again later",
				"retry_after": 60,
			})
			return
		}
		c.Next()
	}
}
