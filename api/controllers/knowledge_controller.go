/*
 * @module api/controllers/knowledge_controller
 * @description 知识库控制器：症状检索、鱼病查询、知识库导入导出与重载
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求 -> 当前快照 -> JSON/YAML
 * @rules 查询接口只读当前快照；导入整体替换知识库，校验失败时保持原知识库不变
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/spf13/cast
 * @refs service/knowledge/knowledge_base.go
 */

package controllers

import (
	"encoding/json"
	"fishdisease-service/service/knowledge"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
)

// maxImportSize 导入文档的大小上限
const maxImportSize = 4 << 20

// KnowledgeController 知识库控制器
type KnowledgeController struct {
	kb *knowledge.KnowledgeBase
}

// NewKnowledgeController 创建知识库控制器
func NewKnowledgeController(kb *knowledge.KnowledgeBase) *KnowledgeController {
	return &KnowledgeController{kb: kb}
}

// DiseaseDetail 鱼病详情，附带规则涉及的症状名称
type DiseaseDetail struct {
	knowledge.Disease
	Symptoms []knowledge.Symptom `json:"symptoms"`
}

// KnowledgeSummary 知识库概况
type KnowledgeSummary struct {
	Version  string `json:"version" example:"3f2a9c1d0b7e"`
	Symptoms int    `json:"symptoms" example:"24"`
	Diseases int    `json:"diseases" example:"12"`
	LoadedAt string `json:"loaded_at" example:"2024-01-01T00:00:00Z"`
}

// ListSymptoms 症状列表
// @Summary 症状列表
// @Description 按知识库顺序返回症状，q 参数按名称或编码检索（大小写不敏感）
// @Tags 知识库
// @Produce json
// @Param q query string false "检索关键词"
// @Success 200 {object} APIResponse{data=[]knowledge.Symptom}
// @Router /symptoms [get]
func (c *KnowledgeController) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	symptoms := c.kb.Snapshot().SearchSymptoms(r.URL.Query().Get("q"))
	if symptoms == nil {
		symptoms = []knowledge.Symptom{}
	}
	respond(w, r, SuccessResponse("查询成功", symptoms))
}

// ListDiseases 鱼病列表
// @Summary 鱼病列表
// @Description 分页返回鱼病及其诊断规则，size 为0时返回全部
// @Tags 知识库
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(0)
// @Success 200 {object} PaginatedResponse{data=[]knowledge.Disease}
// @Router /diseases [get]
func (c *KnowledgeController) ListDiseases(w http.ResponseWriter, r *http.Request) {
	diseases := c.kb.Snapshot().Diseases()
	page := cast.ToInt(r.URL.Query().Get("page"))
	size := cast.ToInt(r.URL.Query().Get("size"))
	if page < 1 {
		page = 1
	}

	items := diseases
	if size > 0 {
		start := (page - 1) * size
		if start > len(diseases) {
			start = len(diseases)
		}
		end := start + size
		if end > len(diseases) {
			end = len(diseases)
		}
		items = diseases[start:end]
	}
	if items == nil {
		items = []knowledge.Disease{}
	}

	render.JSON(w, r, PaginatedResponse{
		Status: 0,
		Msg:    "查询成功",
		Data:   items,
		Total:  int64(len(diseases)),
		Page:   page,
		Size:   size,
	})
}

// GetDisease 鱼病详情
// @Summary 鱼病详情
// @Description 根据编码获取鱼病、处理方案与规则症状
// @Tags 知识库
// @Produce json
// @Param code path string true "鱼病编码"
// @Success 200 {object} APIResponse{data=DiseaseDetail}
// @Failure 404 {object} APIResponse
// @Router /diseases/{code} [get]
func (c *KnowledgeController) GetDisease(w http.ResponseWriter, r *http.Request) {
	snap := c.kb.Snapshot()
	code := chi.URLParam(r, "code")
	disease, ok := snap.Disease(code)
	if !ok {
		respond(w, r, NotFoundResponse(fmt.Sprintf("鱼病不存在: %s", code), nil))
		return
	}

	detail := DiseaseDetail{Disease: disease, Symptoms: make([]knowledge.Symptom, 0, len(disease.Rules))}
	for _, rule := range disease.Rules {
		if sym, ok := snap.Symptom(rule.Symptom); ok {
			detail.Symptoms = append(detail.Symptoms, sym)
		}
	}
	respond(w, r, SuccessResponse("查询成功", detail))
}

// Summary 知识库概况
// @Summary 知识库概况
// @Tags 知识库
// @Produce json
// @Success 200 {object} APIResponse{data=KnowledgeSummary}
// @Router /knowledge [get]
func (c *KnowledgeController) Summary(w http.ResponseWriter, r *http.Request) {
	respond(w, r, SuccessResponse("查询成功", c.summary()))
}

// Reload 从数据库重新加载知识库
// @Summary 重新加载知识库
// @Tags 知识库
// @Produce json
// @Security BasicAuth
// @Success 200 {object} APIResponse{data=KnowledgeSummary}
// @Router /knowledge/reload [post]
func (c *KnowledgeController) Reload(w http.ResponseWriter, r *http.Request) {
	if err := c.kb.Reload(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("重新加载成功", c.summary()))
}

// Export 导出知识库
// @Summary 导出知识库
// @Description 导出当前知识库文档，默认YAML格式
// @Tags 知识库
// @Produce application/x-yaml,json
// @Param format query string false "yaml 或 json" Enums(yaml, json)
// @Success 200 {object} knowledge.Document
// @Router /knowledge/export [get]
func (c *KnowledgeController) Export(w http.ResponseWriter, r *http.Request) {
	doc := c.kb.Export()
	if strings.EqualFold(r.URL.Query().Get("format"), "json") {
		render.JSON(w, r, doc)
		return
	}

	data, err := doc.Encode()
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="knowledge.yaml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import 导入知识库
// @Summary 导入知识库
// @Description 使用YAML或JSON文档整体替换知识库
// @Tags 知识库
// @Accept application/x-yaml,json
// @Produce json
// @Security BasicAuth
// @Param document body knowledge.Document true "知识库文档"
// @Success 200 {object} APIResponse{data=KnowledgeSummary}
// @Failure 400 {object} APIResponse
// @Router /knowledge/import [post]
func (c *KnowledgeController) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize+1))
	if err != nil {
		respond(w, r, BadRequestResponse("读取请求体失败: "+err.Error(), nil))
		return
	}
	if len(data) > maxImportSize {
		respond(w, r, BadRequestResponse("知识库文档过大", nil))
		return
	}

	var doc *knowledge.Document
	if strings.Contains(r.Header.Get("Content-Type"), "json") {
		doc = &knowledge.Document{}
		if err := json.Unmarshal(data, doc); err != nil {
			respond(w, r, BadRequestResponse("请求参数格式错误: "+err.Error(), nil))
			return
		}
	} else {
		doc, err = knowledge.ParseDocument(data)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	if err := c.kb.Replace(r.Context(), doc); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, SuccessResponse("导入成功", c.summary()))
}

func (c *KnowledgeController) summary() KnowledgeSummary {
	snap := c.kb.Snapshot()
	return KnowledgeSummary{
		Version:  snap.Version(),
		Symptoms: len(snap.Symptoms()),
		Diseases: len(snap.Diseases()),
		LoadedAt: snap.LoadedAt().Format("2006-01-02T15:04:05Z07:00"),
	}
}
