/*
 * @module api/controllers/diagnosis_controller
 * @description 诊断控制器：根据一组症状编码返回排序后的候选鱼病
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow 症状编码 -> 诊断服务 -> 诊断报告
 * @rules 未知症状编码被忽略并在 ignored 中返回；请求中的匹配参数仅对本次请求生效，评分脚本只能通过配置设置
 * @dependencies github.com/go-chi/render
 * @refs service/diagnosis/service.go
 */

package controllers

import (
	"fishdisease-service/service/diagnosis"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/spf13/cast"
)

// DiagnosisController 诊断控制器
type DiagnosisController struct {
	svc *diagnosis.Service
}

// NewDiagnosisController 创建诊断控制器
func NewDiagnosisController(svc *diagnosis.Service) *DiagnosisController {
	return &DiagnosisController{svc: svc}
}

// DiagnoseRequest 诊断请求
type DiagnoseRequest struct {
	Symptoms      []string `json:"symptoms" example:"G01,G02"`
	MinPercentage *float64 `json:"min_percentage,omitempty" example:"0"`
	TieBreak      string   `json:"tie_break,omitempty" example:"code" enums:"code,matched,table"`
	Weighting     string   `json:"weighting,omitempty" example:"equal" enums:"equal,weighted,script"`
	Engine        string   `json:"engine,omitempty" example:"overlap" enums:"overlap,datalog"`
}

// Diagnose 诊断
// @Summary 症状诊断
// @Description 根据选中的症状编码计算各鱼病的匹配百分比，按百分比降序返回
// @Tags 诊断
// @Accept json
// @Produce json
// @Param request body DiagnoseRequest true "诊断请求"
// @Success 200 {object} APIResponse{data=diagnosis.Report}
// @Failure 400 {object} APIResponse
// @Router /diagnosis [post]
func (c *DiagnosisController) Diagnose(w http.ResponseWriter, r *http.Request) {
	var req DiagnoseRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond(w, r, BadRequestResponse(fmt.Sprintf("请求参数格式错误:%s", err.Error()), nil))
		return
	}
	c.diagnose(w, r, req)
}

// DiagnoseQuery 通过查询参数诊断
// @Summary 症状诊断（GET）
// @Description symptoms 为逗号分隔的症状编码，也可重复传入 symptom 参数
// @Tags 诊断
// @Produce json
// @Param symptoms query string false "逗号分隔的症状编码" example(G01,G02)
// @Param symptom query []string false "症状编码" collectionFormat(multi)
// @Param min_percentage query number false "最低匹配百分比（不含）"
// @Param tie_break query string false "并列排序策略" Enums(code, matched, table)
// @Param weighting query string false "权重策略" Enums(equal, weighted, script)
// @Param engine query string false "推理引擎" Enums(overlap, datalog)
// @Success 200 {object} APIResponse{data=diagnosis.Report}
// @Failure 400 {object} APIResponse
// @Router /diagnosis [get]
func (c *DiagnosisController) DiagnoseQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := DiagnoseRequest{
		TieBreak:  q.Get("tie_break"),
		Weighting: q.Get("weighting"),
		Engine:    q.Get("engine"),
	}
	for _, v := range q["symptoms"] {
		req.Symptoms = append(req.Symptoms, strings.Split(v, ",")...)
	}
	req.Symptoms = append(req.Symptoms, q["symptom"]...)

	if raw := q.Get("min_percentage"); raw != "" {
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			respond(w, r, BadRequestResponse("min_percentage 必须是数字", nil))
			return
		}
		req.MinPercentage = &v
	}
	c.diagnose(w, r, req)
}

func (c *DiagnosisController) diagnose(w http.ResponseWriter, r *http.Request, req DiagnoseRequest) {
	overrides, err := c.overrides(req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report := c.svc.Diagnose(r.Context(), diagnosis.Request{
		Source:    diagnosis.SourceAPI,
		Symptoms:  req.Symptoms,
		Overrides: overrides,
	})
	msg := report.Message
	if msg == "" {
		msg = "诊断成功"
	}
	respond(w, r, SuccessResponse(msg, report))
}

// overrides 请求未指定任何参数时返回 nil，使用配置中的参数
func (c *DiagnosisController) overrides(req DiagnoseRequest) (*diagnosis.Options, error) {
	if req.MinPercentage == nil && req.TieBreak == "" && req.Weighting == "" && req.Engine == "" {
		return nil, nil
	}

	opts := c.svc.CurrentOptions()
	if req.MinPercentage != nil {
		opts.MinPercentage = *req.MinPercentage
	}
	if req.TieBreak != "" {
		tb, err := diagnosis.ParseTieBreak(req.TieBreak)
		if err != nil {
			return nil, err
		}
		opts.TieBreak = tb
	}
	if req.Weighting != "" {
		wt, err := diagnosis.ParseWeighting(req.Weighting)
		if err != nil {
			return nil, err
		}
		opts.Weighting = wt
	}
	if req.Engine != "" {
		engine, err := diagnosis.ParseEngine(req.Engine)
		if err != nil {
			return nil, err
		}
		opts.Engine = engine
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}
