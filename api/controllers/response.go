/*
 * @module api/controllers/response
 * @description 统一响应结构与错误到HTTP状态码的映射
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow 业务结果/错误 -> APIResponse -> JSON
 * @rules status=0 表示成功；非0时与HTTP状态码一致
 * @dependencies github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"errors"
	"fishdisease-service/service/config"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/session"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) APIResponse {
	return APIResponse{Status: 0, Msg: msg, Data: data}
}

// BadRequestResponse 参数错误
func BadRequestResponse(msg string, data interface{}) APIResponse {
	return APIResponse{Status: http.StatusBadRequest, Msg: msg, Data: data}
}

// NotFoundResponse 资源不存在
func NotFoundResponse(msg string, data interface{}) APIResponse {
	return APIResponse{Status: http.StatusNotFound, Msg: msg, Data: data}
}

// InternalErrorResponse 服务器内部错误
func InternalErrorResponse(msg string, data interface{}) APIResponse {
	return APIResponse{Status: http.StatusInternalServerError, Msg: msg, Data: data}
}

// respond 写入响应，HTTP 状态码与 status 保持一致
func respond(w http.ResponseWriter, r *http.Request, resp APIResponse) {
	if resp.Status != 0 {
		render.Status(r, resp.Status)
	}
	render.JSON(w, r, resp)
}

// respondError 按错误类型选择状态码
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, config.ErrUnknownKey):
		respond(w, r, NotFoundResponse(err.Error(), nil))
	case errors.Is(err, session.ErrUnknownSymptom),
		errors.Is(err, config.ErrInvalidValue),
		errors.Is(err, diagnosis.ErrInvalidOptions),
		errors.Is(err, knowledge.ErrInvalidDocument):
		respond(w, r, BadRequestResponse(err.Error(), nil))
	case errors.Is(err, session.ErrClosed):
		respond(w, r, APIResponse{Status: http.StatusServiceUnavailable, Msg: err.Error()})
	default:
		slog.Error("请求处理失败", "path", r.URL.Path, "error", err)
		respond(w, r, InternalErrorResponse(err.Error(), nil))
	}
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}
