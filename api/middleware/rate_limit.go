/*
 * @module api/middleware/rate_limit
 * @description 按客户端IP限流的中间件
 * @architecture 中间件模式
 * @documentReference DESIGN.md
 * @stateFlow 提取客户端IP -> 限流检查 -> 429 或下一个处理器
 * @rules 限流器异常时放行请求；响应头返回剩余额度
 * @dependencies github.com/go-chi/render
 * @refs service/rate_limiter/redis_rate_limiter.go
 */

package middleware

import (
	"fishdisease-service/service/rate_limiter"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

// RateLimit 返回限流中间件，limiter 为 nil 或规则未启用时不限流
func RateLimit(limiter rate_limiter.RateLimiter, rule rate_limiter.RateLimitRule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || !rule.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), rule, clientIP(r))
			if err != nil {
				slog.Warn("限流检查失败，放行请求", "rule", rule.Name, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))
			if !res.Allowed {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]interface{}{
					"status": http.StatusTooManyRequests,
					"msg":    "请求过于频繁，请稍后再试",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP RealIP 中间件已处理代理头，这里只取 RemoteAddr
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
