package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/pkg/logger"
)

// RateLimit は固定ウィンドウ（1分）のレート制限ミドルウェア
// RedisのINCR/EXPIREでカウントし、ユーザー（未認証時はIP）単位で制限する。
// Redisが落ちている場合は制限せずに通す
func RateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
	if rdb == nil || perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			window := time.Now().Unix() / 60
			key := fmt.Sprintf("ratelimit:%s:%d", rateKey(c), window)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.Warn("レート制限カウンタの更新に失敗しました", zap.Error(err))
				return next(c)
			}
			if count == 1 {
				rdb.Expire(ctx, key, time.Minute)
			}

			remaining := int64(perMinute) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(perMinute) {
				c.Response().Header().Set("Retry-After", "60")
				return echo.NewHTTPError(http.StatusTooManyRequests, "リクエストが多すぎます。しばらくしてから再試行してください")
			}
			return next(c)
		}
	}
}

func rateKey(c echo.Context) string {
	if userID := CurrentUserID(c); userID > 0 {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
