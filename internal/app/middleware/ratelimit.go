package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/linemk/marketplace/internal/lib/api/response"
	lredis "github.com/linemk/marketplace/internal/lib/redis"
	"github.com/linemk/marketplace/internal/security/jwtmiddleware"
)

// Limiter — проверка скользящего окна
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit ограничивает частоту запросов на маршрут: по userID из токена, иначе по IP.
// При недоступности Redis запрос пропускается.
func RateLimit(log *slog.Logger, limiter Limiter, route string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := "ip:" + clientIP(r)
			if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
				subject = fmt.Sprintf("user:%d", userID)
			}

			allowed, err := limiter.Allow(r.Context(), lredis.RateLimitKey(route, subject), limit, window)
			if err != nil {
				log.Warn("rate limiter unavailable", slog.String("route", route), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				response.Render(w, r, http.StatusTooManyRequests, response.Error("RATE_LIMITED"))
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
