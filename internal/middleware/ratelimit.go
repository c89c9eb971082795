package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "rate_limit:"

// RateLimit ограничивает число запросов с одного адреса в фиксированном окне.
// Счётчики хранятся в Redis; при его недоступности запрос пропускается.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil || limit <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := rateLimitKeyPrefix + clientIP(r)

			current, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.Warn("rate limit counter", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			// Счётчик без TTL заблокировал бы клиента навсегда.
			if current == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					logger.Warn("rate limit window", zap.Error(err))
					rdb.Del(ctx, key)
					next.ServeHTTP(w, r)
					return
				}
			}

			if current > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
