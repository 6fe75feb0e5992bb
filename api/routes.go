/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference DESIGN.md
 * @stateFlow 无状态HTTP请求处理；症状清单状态保存在会话存储中
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式；写配置与导入知识库需要管理员认证
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, service/init.go
 */

package api

import (
	"fishdisease-service/api/controllers"
	apimiddleware "fishdisease-service/api/middleware"
	"fishdisease-service/service"
	"fishdisease-service/service/config"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/rate_limiter"
	"fishdisease-service/service/scheduler"
	"fishdisease-service/service/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// Dependencies 路由依赖的服务
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.ConfigService
	Knowledge *knowledge.KnowledgeBase
	Diagnosis *diagnosis.Service
	Sessions  *session.Service
	Scheduler *scheduler.SchedulerService
	AdminAuth *apimiddleware.AdminAuthMiddleware
	// RateLimiter 为 nil 时不限流
	RateLimiter rate_limiter.RateLimiter
	RateLimit   rate_limiter.RateLimitRule
}

// InitRoute 使用全局服务初始化所有API路由
func InitRoute(r *chi.Mux) {
	RegisterRoutes(r, Dependencies{
		DB:        service.DB,
		Config:    service.GlobalConfigService,
		Knowledge: service.GlobalKnowledgeBase,
		Diagnosis: service.GlobalDiagnosisService,
		Sessions:  service.GlobalSessionService,
		Scheduler: service.GlobalSchedulerService,
		AdminAuth: apimiddleware.NewAdminAuthMiddleware(),

		RateLimiter: service.GlobalRateLimiter,
		RateLimit:   service.RateLimitRule(),
	})
}

// RegisterRoutes 注册所有API路由
func RegisterRoutes(r *chi.Mux, deps Dependencies) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimiddleware.Metrics)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	admin := deps.AdminAuth
	if admin == nil {
		admin = apimiddleware.NewAdminAuth("admin", "")
	}
	limited := apimiddleware.RateLimit(deps.RateLimiter, deps.RateLimit)

	// 健康检查
	healthController := controllers.NewHealthController(deps.DB, deps.Knowledge, deps.Scheduler)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)
	r.With(admin.Middleware).Get("/system/jobs", healthController.Jobs)

	// 知识库查询
	knowledgeController := controllers.NewKnowledgeController(deps.Knowledge)
	r.Get("/symptoms", knowledgeController.ListSymptoms)
	r.Route("/diseases", func(r chi.Router) {
		r.Get("/", knowledgeController.ListDiseases)
		r.Get("/{code}", knowledgeController.GetDisease)
	})

	// 知识库管理
	r.Route("/knowledge", func(r chi.Router) {
		r.Get("/", knowledgeController.Summary)
		r.Get("/export", knowledgeController.Export)
		r.Group(func(r chi.Router) {
			r.Use(admin.Middleware)
			r.Post("/reload", knowledgeController.Reload)
			r.Post("/import", knowledgeController.Import)
		})
	})

	// 诊断
	diagnosisController := controllers.NewDiagnosisController(deps.Diagnosis)
	r.Route("/diagnosis", func(r chi.Router) {
		r.Use(limited)
		r.Get("/", diagnosisController.DiagnoseQuery)
		r.Post("/", diagnosisController.Diagnose)
	})

	// 症状清单
	r.Route("/checklists", func(r chi.Router) {
		checklistController := controllers.NewChecklistController(deps.Sessions)
		r.With(limited).Post("/", checklistController.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", checklistController.Get)
			r.Delete("/", checklistController.Delete)
			r.Post("/toggle/{code}", checklistController.Toggle)
			r.Put("/symptoms", checklistController.Select)
			r.Post("/reset", checklistController.Reset)
			r.Post("/flush", checklistController.Flush)
			r.Get("/events", checklistController.Events)
		})
	})

	// 系统配置
	r.Route("/config", func(r chi.Router) {
		configController := controllers.NewConfigController(deps.Config)
		r.Get("/", configController.GetAllConfigs)
		r.Get("/{key}", configController.GetConfig)
		r.Group(func(r chi.Router) {
			r.Use(admin.Middleware)
			r.Post("/batch", configController.BatchUpdateConfigs)
			r.Put("/{key}", configController.UpdateConfig)
			r.Delete("/{key}", configController.ResetConfig)
		})
	})
}
