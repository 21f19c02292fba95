package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medbot/internal/handler"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// TTL is how long an idle client's limiter is kept.
	TTL time.Duration
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	config   RateLimiterConfig
	mu       sync.Mutex
	limiters *cache.Cache
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	return &RateLimiter{
		config:   config,
		limiters: cache.New(config.TTL, 2*config.TTL),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.limiters.Get(key); ok {
		// Touch so an active client's bucket does not expire.
		rl.limiters.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.limiters.SetDefault(key, l)
	return l
}

// Allow reports whether the client identified by key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				handler.NewErrorResponse("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
