package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "requestId"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// AccessLog writes one line per request, at a level chosen by status code.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// limiterIdleTTL is how long a client IP may go without requests before its
// bucket is dropped. An evicted client comes back with a full burst.
const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than idleTTL are swept lazily, at most once per idleTTL.
type RateLimiter struct {
	limiters  sync.Map
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep atomic.Int64
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{rate: rate.Limit(rps), burst: burst, idleTTL: limiterIdleTTL, now: time.Now}
	rl.lastSweep.Store(rl.now().UnixNano())
	return rl
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	now := rl.now().UnixNano()
	rl.sweep(now)

	v, ok := rl.limiters.Load(ip)
	if !ok {
		v, _ = rl.limiters.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)})
	}
	entry := v.(*visitor)
	entry.lastSeen.Store(now)
	return entry.limiter
}

func (rl *RateLimiter) sweep(now int64) {
	last := rl.lastSweep.Load()
	if now-last < int64(rl.idleTTL) || !rl.lastSweep.CompareAndSwap(last, now) {
		return
	}
	cutoff := now - int64(rl.idleTTL)
	rl.limiters.Range(func(key, value any) bool {
		if value.(*visitor).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// tracked reports how many client IPs currently hold a bucket.
func (rl *RateLimiter) tracked() int {
	n := 0
	rl.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (rl *RateLimiter) Middleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ratelimit")
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.limiter(ip).Allow() {
			log.Warn("rate limit exceeded",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.String("client_ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
