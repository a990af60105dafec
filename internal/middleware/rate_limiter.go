package middleware

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"task_list/internal/auth"
	"task_list/internal/observability"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//go:embed rate_limiter.lua
var luaScript string

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	Capacity   int     // Maximum number of tokens (max requests)
	RefillRate float64 // Tokens refilled per second
}

// DefaultRateLimiterConfig returns default rate limiter settings
// 10 requests per second with burst capacity of 20
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   20,   // Can burst up to 20 requests
		RefillRate: 10.0, // Refills 10 tokens per second
	}
}

// KeyFunc derives the bucket key of a request. It returns false when the
// request carries nothing to key on.
type KeyFunc func(c *gin.Context) (string, bool)

// RateLimiter implements a token bucket per key using Redis + Lua script.
// A nil client disables limiting.
type RateLimiter struct {
	client  *redis.Client
	script  *redis.Script
	metrics *observability.Metrics
	now     func() time.Time
}

func NewRateLimiter(client *redis.Client, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		client:  client,
		script:  redis.NewScript(luaScript),
		metrics: metrics,
		now:     time.Now,
	}
}

// Allow takes one token from the bucket at key.
func (rl *RateLimiter) Allow(ctx context.Context, key string, config *RateLimiterConfig) (bool, error) {
	now := float64(rl.now().UnixMicro()) / 1e6

	// Run uses EVALSHA and falls back to EVAL when the script is not cached.
	result, err := rl.script.Run(ctx, rl.client, []string{key},
		config.Capacity,
		config.RefillRate,
		now,
	).Int64()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

// PerUser limits authenticated requests by user ID. It must run after
// AuthMiddleware.
func (rl *RateLimiter) PerUser(config *RateLimiterConfig) gin.HandlerFunc {
	return rl.Middleware("user", config, func(c *gin.Context) (string, bool) {
		userID, err := auth.GetUserIDFromContext(c)
		if err != nil {
			return "", false
		}
		return UserRateLimiterKey(userID), true
	})
}

// PerClientIP limits unauthenticated requests by client address.
func (rl *RateLimiter) PerClientIP(config *RateLimiterConfig) gin.HandlerFunc {
	return rl.Middleware("ip", config, func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ClientIPRateLimiterKey(ip), true
	})
}

func (rl *RateLimiter) Middleware(scope string, config *RateLimiterConfig, keyFunc KeyFunc) gin.HandlerFunc {
	retryAfter := int(math.Ceil(1.0 / config.RefillRate))

	return func(c *gin.Context) {
		if rl == nil || rl.client == nil {
			c.Next()
			return
		}

		key, ok := keyFunc(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		allowed, err := rl.Allow(c.Request.Context(), key, config)
		if err != nil {
			logrus.WithError(err).Error("Failed to execute rate limiter Lua script")
			// Fail open: allow request if Redis fails
			c.Next()
			return
		}

		if !allowed {
			rl.metrics.RateLimited(scope)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": fmt.Sprintf("%d seconds", retryAfter),
			})
			return
		}

		c.Next()
	}
}

// Build cache key for user rate limiting
func UserRateLimiterKey(userID int) string {
	return fmt.Sprintf("rate_limiter:user:%d", userID)
}

func ClientIPRateLimiterKey(ip string) string {
	return fmt.Sprintf("rate_limiter:ip:%s", ip)
}
