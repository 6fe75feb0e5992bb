/*
 * @module service/diagnosis/matcher
 * @description 症状匹配器：对观察到的症状集合与知识库中每个鱼病的症状签名做比对，计算匹配百分比并排序
 * @architecture 纯函数式领域核心，无 I/O
 * @documentReference DESIGN.md
 * @stateFlow 观察编码 -> 规范化/去重 -> 推理命中 -> 评分 -> 阈值过滤 -> 排序 -> 排名
 * @rules
 *   - 空观察集合返回空结果
 *   - 未知症状编码被忽略
 *   - 命中数为零的鱼病不出现在结果中
 *   - 百分比限制在 [0,100]，需严格大于 MinPercentage
 *   - 按百分比降序，并列时按 TieBreak 排序
 *   - 引擎或脚本失败时回退到默认实现，匹配本身不返回错误
 * @dependencies fishdisease-service/service/knowledge
 * @refs service/diagnosis/service.go, service/session/service.go
 */

package diagnosis

import (
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/metrics"
	"fmt"
	"log/slog"
	"sort"
)

// Result 单个候选鱼病
type Result struct {
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	Percentage      float64  `json:"percentage"`
	Solution        string   `json:"solution"`
	Treatment       string   `json:"treatment"`
	MatchedSymptoms []string `json:"matched_symptoms"`
	MatchedCount    int      `json:"matched_count"`
	RuleCount       int      `json:"rule_count"`
	Rank            int      `json:"rank"`
}

// Observation 规范化后的观察集合
type Observation struct {
	// Recognized 知识库中存在的症状，保持首次出现顺序
	Recognized []string
	// Ignored 知识库中不存在的编码
	Ignored []string
}

// Observe 规范化编码并区分已知/未知症状
func Observe(snap *knowledge.Snapshot, codes []string) Observation {
	obs := Observation{Recognized: []string{}}
	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		code := knowledge.NormalizeCode(raw)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		if snap.HasSymptom(code) {
			obs.Recognized = append(obs.Recognized, code)
		} else {
			obs.Ignored = append(obs.Ignored, code)
		}
	}
	return obs
}

// Matcher 症状匹配器，创建后只读，可并发使用
type Matcher struct {
	opts       Options
	inferencer Inferencer
	scorer     Scorer
}

// NewMatcher 创建匹配器
func NewMatcher(opts Options) (*Matcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	inferencer, err := NewInferencer(opts.Engine)
	if err != nil {
		return nil, err
	}

	var scorer Scorer
	switch opts.Weighting {
	case WeightingWeighted:
		scorer = WeightedScorer()
	case WeightingScript:
		s, err := NewScriptScorer(opts.ScoreScript)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		scorer = s
	default:
		scorer = EqualScorer()
	}

	return &Matcher{opts: opts, inferencer: inferencer, scorer: scorer}, nil
}

// MustNewMatcher 参数无效时 panic，仅用于默认参数
func MustNewMatcher(opts Options) *Matcher {
	m, err := NewMatcher(opts)
	if err != nil {
		panic(err)
	}
	return m
}

// Options 匹配器参数
func (m *Matcher) Options() Options {
	return m.opts
}

// Match 对观察到的症状编码进行匹配，返回排序后的候选鱼病
func (m *Matcher) Match(snap *knowledge.Snapshot, codes []string) []Result {
	return m.MatchObservation(snap, Observe(snap, codes))
}

// MatchObservation 对已规范化的观察集合进行匹配
func (m *Matcher) MatchObservation(snap *knowledge.Snapshot, obs Observation) []Result {
	results := []Result{}
	if len(obs.Recognized) == 0 {
		return results
	}

	observed := make(map[string]bool, len(obs.Recognized))
	for _, code := range obs.Recognized {
		observed[code] = true
	}

	inference := m.infer(snap, observed)

	type candidate struct {
		Result
		position int
	}
	candidates := make([]candidate, 0)

	for _, d := range snap.Diseases() {
		hits := inference[d.Code]
		if len(hits) == 0 || len(d.Rules) == 0 {
			continue
		}

		in := ScoreInput{Disease: d.Code, RuleCount: len(d.Rules), TotalWeight: d.TotalWeight()}
		matched := make([]string, 0, len(hits))
		for _, r := range d.Rules {
			if hits[r.Symptom] {
				in.Matched++
				in.MatchedWeight += r.Weight
				matched = append(matched, r.Symptom)
			}
		}
		if in.Matched == 0 {
			continue
		}

		pct := clampPercentage(m.score(in))
		if pct <= m.opts.MinPercentage {
			continue
		}

		candidates = append(candidates, candidate{
			Result: Result{
				Code:            d.Code,
				Name:            d.Name,
				Percentage:      pct,
				Solution:        d.Solution,
				Treatment:       d.Treatment,
				MatchedSymptoms: matched,
				MatchedCount:    in.Matched,
				RuleCount:       in.RuleCount,
			},
			position: d.Position,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		switch m.opts.TieBreak {
		case TieBreakMatched:
			if a.MatchedCount != b.MatchedCount {
				return a.MatchedCount > b.MatchedCount
			}
			return a.Code < b.Code
		case TieBreakTable:
			return a.position < b.position
		default:
			return a.Code < b.Code
		}
	})

	for i, c := range candidates {
		c.Rank = i + 1
		results = append(results, c.Result)
	}
	return results
}

func (m *Matcher) infer(snap *knowledge.Snapshot, observed map[string]bool) Inference {
	inference, err := m.inferencer.Infer(snap, observed)
	if err == nil {
		return inference
	}

	slog.Error("推理引擎执行失败，回退到集合求交", "engine", m.opts.Engine, "error", err)
	metrics.ScoringFallbacks.WithLabelValues("engine").Inc()
	inference, _ = overlapInferencer{}.Infer(snap, observed)
	return inference
}

func (m *Matcher) score(in ScoreInput) float64 {
	pct, err := m.scorer.Score(in)
	if err == nil {
		return pct
	}

	slog.Error("评分失败，回退到等权评分", "weighting", m.opts.Weighting, "disease", in.Disease, "error", err)
	metrics.ScoringFallbacks.WithLabelValues("scorer").Inc()
	pct, _ = equalScore(in)
	return pct
}
