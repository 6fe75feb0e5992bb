/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供存活、就绪检查与定时任务状态
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求处理流程
 * @rules 就绪检查要求数据库可达且知识库至少包含一种鱼病
 * @dependencies gorm.io/gorm, github.com/go-chi/render
 * @refs service/knowledge/knowledge_base.go, service/scheduler/scheduler_service.go
 */

package controllers

import (
	"context"
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/scheduler"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// Version 服务版本
const Version = "1.0.0"

// HealthController 健康检查控制器
type HealthController struct {
	db        *gorm.DB
	kb        *knowledge.KnowledgeBase
	scheduler *scheduler.SchedulerService
}

// NewHealthController 创建健康检查控制器实例，db 与 scheduler 可为 nil
func NewHealthController(db *gorm.DB, kb *knowledge.KnowledgeBase, s *scheduler.SchedulerService) *HealthController {
	return &HealthController{db: db, kb: kb, scheduler: s}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status           string    `json:"status" example:"ok"`
	Timestamp        time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version          string    `json:"version" example:"1.0.0"`
	Service          string    `json:"service" example:"fishdisease-service"`
	KnowledgeVersion string    `json:"knowledge_version,omitempty" example:"3f2a9c1d"`
	Diseases         int       `json:"diseases,omitempty" example:"12"`
	Reason           string    `json:"reason,omitempty"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   Version,
		Service:   "fishdisease-service",
	})
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查数据库连接与知识库是否就绪
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   Version,
		Service:   "fishdisease-service",
	}

	if reason := c.check(r.Context()); reason != "" {
		resp.Status = "not_ready"
		resp.Reason = reason
		render.Status(r, http.StatusServiceUnavailable)
	}
	if c.kb != nil {
		snap := c.kb.Snapshot()
		resp.KnowledgeVersion = snap.Version()
		resp.Diseases = len(snap.Diseases())
	}
	render.JSON(w, r, resp)
}

func (c *HealthController) check(ctx context.Context) string {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return "数据库不可用: " + err.Error()
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			return "数据库不可用: " + err.Error()
		}
	}
	if c.kb == nil || len(c.kb.Snapshot().Diseases()) == 0 {
		return "知识库为空"
	}
	return ""
}

// Jobs 定时任务状态
// @Summary 定时任务状态
// @Description 查看已注册定时任务的执行情况
// @Tags 系统
// @Produce json
// @Success 200 {object} APIResponse{data=[]scheduler.JobStatus}
// @Router /system/jobs [get]
func (c *HealthController) Jobs(w http.ResponseWriter, r *http.Request) {
	if c.scheduler == nil {
		respond(w, r, SuccessResponse("查询成功", []scheduler.JobStatus{}))
		return
	}
	respond(w, r, SuccessResponse("查询成功", c.scheduler.Status()))
}
