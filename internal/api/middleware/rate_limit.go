package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumeRender/internal/errcode"
)

// RateCounter 是限流所需的 Redis 命令子集。
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client RateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// RateLimitMiddleware 按客户端 IP 做固定窗口（每分钟）限流。
// Redis 不可用时放行并记录告警。
func RateLimitMiddleware(counter RateCounter, perMinute int, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		if counter == nil || perMinute <= 0 {
			c.Next()
			return
		}

		window := now().UTC().Truncate(time.Minute)
		key := fmt.Sprintf("ratelimit:render:%s:%d", c.ClientIP(), window.Unix())

		count, err := incrWithTTL(c.Request.Context(), counter, key, time.Minute)
		if err != nil {
			LoggerFromContext(c).Warn("rate limit counter unavailable, allowing request", slog.Any("error", err))
			c.Next()
			return
		}
		if count > int64(perMinute) {
			retryAfter := window.Add(time.Minute).Sub(now().UTC())
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			abortWithError(c, http.StatusTooManyRequests, errcode.RateLimited, "Too many requests, please retry later")
			return
		}
		c.Next()
	}
}
