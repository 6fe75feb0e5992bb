/*
 * @module api/controllers/checklist_controller
 * @description 症状清单控制器：创建清单、勾选症状、获取自动计算的诊断结果，并通过SSE推送变化
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow 勾选 -> loading -> 防抖到期 -> result；SSE 连接首先推送当前状态
 * @rules 修改类接口立即返回 loading 状态的清单，结果稍后通过 GET 或 SSE 获取
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/session/service.go
 */

package controllers

import (
	"encoding/json"
	"fishdisease-service/service/session"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// sseHeartbeat SSE 保活间隔
var sseHeartbeat = 25 * time.Second

// ChecklistController 症状清单控制器
type ChecklistController struct {
	sessions *session.Service
}

// NewChecklistController 创建症状清单控制器
func NewChecklistController(sessions *session.Service) *ChecklistController {
	return &ChecklistController{sessions: sessions}
}

// SymptomsRequest 症状选择请求
type SymptomsRequest struct {
	Symptoms []string `json:"symptoms" example:"G01,G02"`
}

// Create 创建清单
// @Summary 创建症状清单
// @Description 创建新的症状清单，可附带初始选择
// @Tags 症状清单
// @Accept json
// @Produce json
// @Param request body SymptomsRequest false "初始选择"
// @Success 201 {object} APIResponse{data=session.Checklist}
// @Failure 400 {object} APIResponse
// @Router /checklists [post]
func (c *ChecklistController) Create(w http.ResponseWriter, r *http.Request) {
	var req SymptomsRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			respond(w, r, BadRequestResponse(fmt.Sprintf("请求参数格式错误:%s", err.Error()), nil))
			return
		}
	}

	checklist, err := c.sessions.Create(r.Context(), req.Symptoms)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SuccessResponse("创建成功", checklist))
}

// Get 获取清单
// @Summary 获取症状清单
// @Description 返回当前选择与最近一次计算结果，loading 为 true 表示结果尚未更新
// @Tags 症状清单
// @Produce json
// @Param id path string true "清单ID"
// @Success 200 {object} APIResponse{data=session.Checklist}
// @Failure 404 {object} APIResponse
// @Router /checklists/{id} [get]
func (c *ChecklistController) Get(w http.ResponseWriter, r *http.Request) {
	checklist, err := c.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("查询成功", checklist))
}

// Toggle 勾选或取消症状
// @Summary 勾选/取消症状
// @Tags 症状清单
// @Produce json
// @Param id path string true "清单ID"
// @Param code path string true "症状编码"
// @Success 200 {object} APIResponse{data=session.Checklist}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /checklists/{id}/toggle/{code} [post]
func (c *ChecklistController) Toggle(w http.ResponseWriter, r *http.Request) {
	checklist, err := c.sessions.Toggle(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("更新成功", checklist))
}

// Select 整体替换选择
// @Summary 设置选中的症状
// @Tags 症状清单
// @Accept json
// @Produce json
// @Param id path string true "清单ID"
// @Param request body SymptomsRequest true "症状选择"
// @Success 200 {object} APIResponse{data=session.Checklist}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /checklists/{id}/symptoms [put]
func (c *ChecklistController) Select(w http.ResponseWriter, r *http.Request) {
	var req SymptomsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond(w, r, BadRequestResponse(fmt.Sprintf("请求参数格式错误:%s", err.Error()), nil))
		return
	}

	checklist, err := c.sessions.Select(r.Context(), chi.URLParam(r, "id"), req.Symptoms)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("更新成功", checklist))
}

// Reset 清空选择
// @Summary 重置症状清单
// @Tags 症状清单
// @Produce json
// @Param id path string true "清单ID"
// @Success 200 {object} APIResponse{data=session.Checklist}
// @Failure 404 {object} APIResponse
// @Router /checklists/{id}/reset [post]
func (c *ChecklistController) Reset(w http.ResponseWriter, r *http.Request) {
	checklist, err := c.sessions.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("重置成功", checklist))
}

// Flush 立即计算
// @Summary 立即计算诊断结果
// @Description 跳过防抖等待，立即计算尚未更新的结果
// @Tags 症状清单
// @Produce json
// @Param id path string true "清单ID"
// @Success 200 {object} APIResponse{data=session.Checklist}
// @Failure 404 {object} APIResponse
// @Router /checklists/{id}/flush [post]
func (c *ChecklistController) Flush(w http.ResponseWriter, r *http.Request) {
	checklist, err := c.sessions.Flush(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("计算完成", checklist))
}

// Delete 删除清单
// @Summary 删除症状清单
// @Tags 症状清单
// @Produce json
// @Param id path string true "清单ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /checklists/{id} [delete]
func (c *ChecklistController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("删除成功", nil))
}

// Events 订阅清单变化
// @Summary 订阅症状清单事件
// @Description SSE 推送 loading/result/reset/deleted 事件，连接建立后首先推送 snapshot 事件
// @Tags 症状清单
// @Produce text/event-stream
// @Param id path string true "清单ID"
// @Success 200 {string} string "SSE stream"
// @Failure 404 {object} APIResponse
// @Router /checklists/{id}/events [get]
func (c *ChecklistController) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// 先订阅再读取当前状态，避免漏掉两者之间的事件
	events, cancel := c.sessions.Subscribe(id)
	defer cancel()

	checklist, err := c.sessions.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respond(w, r, InternalErrorResponse("当前连接不支持流式响应", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, "snapshot", session.Event{Type: "snapshot", Checklist: checklist, Timestamp: time.Now()})
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, string(ev.Type), ev)
			flusher.Flush()
			if ev.Type == session.EventDeleted {
				return
			}
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Debug("SSE连接已断开", "checklist", id)
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("序列化SSE事件失败", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
