/*
 * @module service/diagnosis/options
 * @description 匹配器可配置参数：最低百分比、并列排序策略、权重策略、推理引擎
 * @architecture 分层架构 - 领域层
 * @documentReference DESIGN.md
 * @stateFlow 配置服务 -> Options -> Matcher
 * @rules 未知枚举值视为无效配置
 * @dependencies 无
 * @refs service/config/config_service.go
 */

package diagnosis

import (
	"errors"
	"fmt"
	"strings"
)

// TieBreak 百分比相同时的排序策略
type TieBreak string

const (
	// TieBreakCode 按鱼病编码升序
	TieBreakCode TieBreak = "code"
	// TieBreakMatched 命中症状多者优先，其次按编码
	TieBreakMatched TieBreak = "matched"
	// TieBreakTable 按知识库中的顺序
	TieBreakTable TieBreak = "table"
)

// Weighting 百分比计算策略
type Weighting string

const (
	// WeightingEqual 命中规则数 / 规则总数
	WeightingEqual Weighting = "equal"
	// WeightingWeighted 命中规则权重和 / 规则权重总和
	WeightingWeighted Weighting = "weighted"
	// WeightingScript 由 yaegi 脚本计算
	WeightingScript Weighting = "script"
)

// Engine 前向链推理引擎
type Engine string

const (
	// EngineOverlap 集合求交
	EngineOverlap Engine = "overlap"
	// EngineDatalog Mangle Datalog 求不动点
	EngineDatalog Engine = "datalog"
)

// ErrInvalidOptions 匹配参数无效
var ErrInvalidOptions = errors.New("匹配参数无效")

// Options 匹配器参数
type Options struct {
	// MinPercentage 结果需严格大于该值才会被返回
	MinPercentage float64   `json:"min_percentage"`
	TieBreak      TieBreak  `json:"tie_break"`
	Weighting     Weighting `json:"weighting"`
	Engine        Engine    `json:"engine"`
	ScoreScript   string    `json:"score_script,omitempty"`
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		MinPercentage: 0,
		TieBreak:      TieBreakCode,
		Weighting:     WeightingEqual,
		Engine:        EngineOverlap,
	}
}

// Validate 校验参数
func (o Options) Validate() error {
	if !(o.MinPercentage >= 0 && o.MinPercentage < 100) {
		return fmt.Errorf("%w: min_percentage 必须在 [0,100) 之间: %v", ErrInvalidOptions, o.MinPercentage)
	}
	// 解析结果必须与原值一致，大小写不同的值需先经过 Parse* 规范化
	if v, err := ParseTieBreak(string(o.TieBreak)); err != nil || v != o.TieBreak {
		return fmt.Errorf("%w: 未知的并列排序策略 %q", ErrInvalidOptions, o.TieBreak)
	}
	if v, err := ParseWeighting(string(o.Weighting)); err != nil || v != o.Weighting {
		return fmt.Errorf("%w: 未知的权重策略 %q", ErrInvalidOptions, o.Weighting)
	}
	if v, err := ParseEngine(string(o.Engine)); err != nil || v != o.Engine {
		return fmt.Errorf("%w: 未知的推理引擎 %q", ErrInvalidOptions, o.Engine)
	}
	if o.Weighting == WeightingScript && o.ScoreScript == "" {
		return fmt.Errorf("%w: script 权重策略需要提供评分脚本", ErrInvalidOptions)
	}
	return nil
}

// ParseTieBreak 解析并列排序策略
func ParseTieBreak(s string) (TieBreak, error) {
	v := TieBreak(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case TieBreakCode, TieBreakMatched, TieBreakTable:
		return v, nil
	}
	return "", fmt.Errorf("%w: 未知的并列排序策略 %q", ErrInvalidOptions, s)
}

// ParseWeighting 解析权重策略
func ParseWeighting(s string) (Weighting, error) {
	v := Weighting(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case WeightingEqual, WeightingWeighted, WeightingScript:
		return v, nil
	}
	return "", fmt.Errorf("%w: 未知的权重策略 %q", ErrInvalidOptions, s)
}

// ParseEngine 解析推理引擎
func ParseEngine(s string) (Engine, error) {
	v := Engine(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case EngineOverlap, EngineDatalog:
		return v, nil
	}
	return "", fmt.Errorf("%w: 未知的推理引擎 %q", ErrInvalidOptions, s)
}
