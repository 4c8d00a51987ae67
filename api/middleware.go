package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter gives every client IP a token bucket of `limit` requests per `window`.
type ipRateLimiter struct {
	limit  int
	window time.Duration

	mu          sync.Mutex
	visitors    map[string]*visitor
	lastCleanup time.Time
}

func newIPRateLimiter(limit int, window time.Duration) *ipRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if limit <= 0 {
		limit = 1
	}
	return &ipRateLimiter{
		limit:       limit,
		window:      window,
		visitors:    make(map[string]*visitor),
		lastCleanup: time.Now(),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Xoá các IP không hoạt động trong một cửa sổ để map không phình mãi.
	if now.Sub(l.lastCleanup) > l.window {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.window {
				delete(l.visitors, key)
			}
		}
		l.lastCleanup = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit),
		}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// rateLimitMiddleware rejects clients that exceed their bucket with 429.
func rateLimitMiddleware(limiter *ipRateLimiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !limiter.allow(ctx.ClientIP()) {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse(ErrTooManyRequests))
			return
		}
		ctx.Next()
	}
}

// requestLogger logs every request once it completes.
func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		log.Info().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Str("client_ip", ctx.ClientIP()).
			Int("status", ctx.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}
