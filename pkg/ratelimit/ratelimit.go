// Package ratelimit throttles login and registration attempts per client with
// a fixed window counter kept in Redis.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bloodbank/pkg/metrics"
)

const keyPrefix = "ratelimit:"

// The first hit in a window starts the expiry so the counter resets on its own.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

type Limiter struct {
	client  *redis.Client
	limit   int
	window  time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New returns nil when client is nil or limit is not positive; a nil Limiter allows everything.
func New(client *redis.Client, limit int, window time.Duration, log *zap.Logger, m *metrics.Metrics) *Limiter {
	if client == nil || limit <= 0 {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{client: client, limit: limit, window: window, log: log, metrics: m}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	n, err := hitScript.Run(ctx, l.client, []string{keyPrefix + key}, l.window.Milliseconds()).Int()
	if err != nil {
		return true, err
	}
	return n <= l.limit, nil
}

// Middleware limits requests per client IP within scope. Redis failures let
// the request through.
func (l *Limiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		ok, err := l.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			l.log.Warn("rate limiter unavailable, allowing request",
				zap.String("scope", scope),
				zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			l.metrics.RateLimited()
			c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
