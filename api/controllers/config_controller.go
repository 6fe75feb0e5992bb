/*
 * @module api/controllers/config_controller
 * @description 配置管理控制器，提供匹配参数与会话参数的HTTP接口
 * @architecture RESTful API架构
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求 -> 控制器 -> 配置服务 -> 数据库
 * @rules 只接受已定义的配置键；写操作需要管理员认证；环境变量设置的值优先生效
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/config
 */

package controllers

import (
	"fishdisease-service/service/config"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ConfigController 配置控制器
type ConfigController struct {
	svc *config.ConfigService
}

// NewConfigController 创建配置控制器实例
func NewConfigController(svc *config.ConfigService) *ConfigController {
	return &ConfigController{svc: svc}
}

// GetAllConfigs 获取所有配置
// @Summary 获取所有系统配置
// @Description 获取系统所有配置项及其来源（env/database/default）
// @Tags 系统配置
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.SystemConfigItem}
// @Router /config [get]
func (c *ConfigController) GetAllConfigs(w http.ResponseWriter, r *http.Request) {
	respond(w, r, SuccessResponse("获取配置成功", c.svc.GetAllSystemConfigs()))
}

// GetConfig 获取单个配置
// @Summary 获取单个配置
// @Description 根据键名获取配置值
// @Tags 系统配置
// @Produce json
// @Param key path string true "配置键"
// @Success 200 {object} APIResponse{data=models.SystemConfigItem}
// @Failure 404 {object} APIResponse
// @Router /config/{key} [get]
func (c *ConfigController) GetConfig(w http.ResponseWriter, r *http.Request) {
	item, err := c.svc.GetSystemConfig(chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("获取配置成功", item))
}

// UpdateConfigRequest 更新配置请求
type UpdateConfigRequest struct {
	Value       string `json:"value" binding:"required"`
	Description string `json:"description"`
}

// UpdateConfig 更新配置
// @Summary 更新配置
// @Description 更新指定键的配置值，值会按配置项类型校验
// @Tags 系统配置
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param key path string true "配置键"
// @Param request body UpdateConfigRequest true "更新配置请求"
// @Success 200 {object} APIResponse{data=models.SystemConfigItem}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /config/{key} [put]
func (c *ConfigController) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req UpdateConfigRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond(w, r, BadRequestResponse("请求参数错误: "+err.Error(), nil))
		return
	}

	if err := c.svc.SetSystemConfig(r.Context(), key, req.Value, req.Description); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := c.svc.GetSystemConfig(key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("更新配置成功", item))
}

// ResetConfig 恢复默认值
// @Summary 恢复默认配置
// @Description 删除数据库中保存的值，恢复为默认值
// @Tags 系统配置
// @Produce json
// @Security BasicAuth
// @Param key path string true "配置键"
// @Success 200 {object} APIResponse{data=models.SystemConfigItem}
// @Failure 404 {object} APIResponse
// @Router /config/{key} [delete]
func (c *ConfigController) ResetConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := c.svc.ResetSystemConfig(r.Context(), key); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := c.svc.GetSystemConfig(key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("已恢复默认值", item))
}

// BatchUpdateConfigsRequest 批量更新配置请求
type BatchUpdateConfigsRequest struct {
	Configs []struct {
		Key         string `json:"key" binding:"required"`
		Value       string `json:"value" binding:"required"`
		Description string `json:"description"`
	} `json:"configs" binding:"required"`
}

// BatchUpdateResult 批量更新结果
type BatchUpdateResult struct {
	SuccessCount int      `json:"success_count"`
	FailedCount  int      `json:"failed_count"`
	Errors       []string `json:"errors"`
}

// BatchUpdateConfigs 批量更新配置
// @Summary 批量更新配置
// @Description 批量更新多个配置项，单项失败不影响其他项
// @Tags 系统配置
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param request body BatchUpdateConfigsRequest true "批量更新配置请求"
// @Success 200 {object} APIResponse{data=BatchUpdateResult}
// @Router /config/batch [post]
func (c *ConfigController) BatchUpdateConfigs(w http.ResponseWriter, r *http.Request) {
	var req BatchUpdateConfigsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond(w, r, BadRequestResponse("请求参数错误: "+err.Error(), nil))
		return
	}

	result := BatchUpdateResult{Errors: []string{}}
	for _, item := range req.Configs {
		if err := c.svc.SetSystemConfig(r.Context(), item.Key, item.Value, item.Description); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", item.Key, err.Error()))
			continue
		}
		result.SuccessCount++
	}
	respond(w, r, SuccessResponse("批量更新完成", result))
}
