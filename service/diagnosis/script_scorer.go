/*
 * @module service/diagnosis/script_scorer
 * @description 基于 yaegi 的可配置评分脚本，运营人员可通过配置项 matcher.score_script 调整百分比算法
 * @architecture 策略模式 - 脚本解释执行
 * @documentReference DESIGN.md
 * @stateFlow 脚本文本 -> sha1 缓存 -> 编译为 Score 函数 -> 每个候选鱼病调用
 * @rules 脚本只能使用标准库；返回值必须能转换为 float64；结果仍会被限制在 [0,100]
 * @dependencies github.com/traefik/yaegi, github.com/spf13/cast
 * @refs service/diagnosis/matcher.go
 */

package diagnosis

import (
	"crypto/sha1"
	"fmt"
	"sync"

	"github.com/spf13/cast"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ScriptScorer 脚本评分器
type ScriptScorer struct {
	fn   func(map[string]interface{}) (interface{}, error)
	hash string
}

var (
	scriptCacheMu sync.RWMutex
	scriptCache   = make(map[string]*ScriptScorer)
)

// NewScriptScorer 编译评分脚本，相同脚本复用缓存
func NewScriptScorer(script string) (*ScriptScorer, error) {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))

	scriptCacheMu.RLock()
	cached, ok := scriptCache[hash]
	scriptCacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	scorer, err := compileScoreScript(script, hash)
	if err != nil {
		return nil, err
	}

	scriptCacheMu.Lock()
	scriptCache[hash] = scorer
	scriptCacheMu.Unlock()
	return scorer, nil
}

// Hash 脚本哈希
func (s *ScriptScorer) Hash() string {
	return s.hash
}

// Score 实现 Scorer
func (s *ScriptScorer) Score(in ScoreInput) (result float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("评分脚本执行异常: %v", r)
		}
	}()

	out, err := s.fn(map[string]interface{}{
		"disease":        in.Disease,
		"matched":        in.Matched,
		"rule_count":     in.RuleCount,
		"matched_weight": in.MatchedWeight,
		"total_weight":   in.TotalWeight,
	})
	if err != nil {
		return 0, fmt.Errorf("评分脚本返回错误: %w", err)
	}

	value, err := cast.ToFloat64E(out)
	if err != nil {
		return 0, fmt.Errorf("评分脚本返回值无法转换为数字: %w", err)
	}
	return value, nil
}

// ValidateScoreScript 编译并用样例数据试运行脚本
func ValidateScoreScript(script string) error {
	scorer, err := NewScriptScorer(script)
	if err != nil {
		return err
	}
	_, err = scorer.Score(ScoreInput{Disease: "P00", Matched: 1, RuleCount: 2, MatchedWeight: 1, TotalWeight: 2})
	return err
}

func compileScoreScript(script, hash string) (*ScriptScorer, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	// 脚本体被包装进 Score 函数，常用参数预先取出
	wrapped := fmt.Sprintf(`
package main

import (
	"math"
	"strings"
)

func Score(params map[string]interface{}) (interface{}, error) {
	disease, _ := params["disease"].(string)
	matched, _ := params["matched"].(int)
	ruleCount, _ := params["rule_count"].(int)
	matchedWeight, _ := params["matched_weight"].(float64)
	totalWeight, _ := params["total_weight"].(float64)
	_, _, _, _, _ = disease, matched, ruleCount, matchedWeight, totalWeight
	_, _ = math.Abs, strings.HasPrefix

%s
}
`, script)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("评分脚本编译失败: %w", err)
	}

	v, err := i.Eval("Score")
	if err != nil {
		return nil, fmt.Errorf("评分脚本缺少 Score 函数: %w", err)
	}

	fn, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Score 函数签名必须是 func(map[string]interface{}) (interface{}, error)")
	}

	return &ScriptScorer{fn: fn, hash: hash}, nil
}
