/*
 * @module api/middleware/metrics
 * @description HTTP请求指标中间件，按路由模板统计请求数与耗时
 * @architecture 中间件模式
 * @documentReference DESIGN.md
 * @stateFlow 请求 -> 包装ResponseWriter -> 下一个处理器 -> 记录指标
 * @rules 使用chi路由模板作为标签，避免路径参数导致标签基数膨胀
 * @dependencies github.com/go-chi/chi/v5, github.com/prometheus/client_golang
 * @refs service/metrics/metrics.go
 */

package middleware

import (
	"fishdisease-service/service/metrics"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics 记录请求指标
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
