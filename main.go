package main

import (
	"context"
	"fishdisease-service/api"
	_ "fishdisease-service/docs"
	"fishdisease-service/logger"
	"fishdisease-service/service"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	PORT         = 80
	BASE_CONTEXT = ""
)

func init() {
	if val := os.Getenv("LISTEN_PORT"); val != "" {
		PORT, _ = strconv.Atoi(val)
	}

	if val := os.Getenv("BASE_CONTEXT"); val != "" {
		BASE_CONTEXT = val
	}
}

// @title 鱼病诊断服务 API
// @version 1.0
// @description 基于症状规则匹配的鱼病诊断服务，提供症状清单、诊断排序与知识库管理
// @BasePath /
// @securityDefinitions.basic BasicAuth
func main() {
	logger.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := service.Init(ctx); err != nil {
		slog.Error("服务初始化失败", "error", err)
		os.Exit(1)
	}

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if BASE_CONTEXT != "" {
		mux.Route(BASE_CONTEXT, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(PORT), mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("服务启动", "port", PORT, "base_context", BASE_CONTEXT)
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP服务异常退出", "error", err)
		}
	case <-ctx.Done():
		slog.Info("收到退出信号，正在停止服务")
		done := make(chan struct{})
		go func() {
			if err := s.GracefulStop(); err != nil {
				slog.Warn("HTTP服务停止失败", "error", err)
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(15 * time.Second):
			slog.Warn("等待HTTP服务停止超时")
		}
	}

	service.Shutdown()
}
