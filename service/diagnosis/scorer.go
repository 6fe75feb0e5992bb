package diagnosis

import "math"

// ScoreInput 单个鱼病的评分输入
type ScoreInput struct {
	Disease       string
	Matched       int
	RuleCount     int
	MatchedWeight float64
	TotalWeight   float64
}

// Scorer 根据命中情况计算百分比
type Scorer interface {
	Score(in ScoreInput) (float64, error)
}

// ScorerFunc 函数适配器
type ScorerFunc func(in ScoreInput) (float64, error)

// Score 实现 Scorer
func (f ScorerFunc) Score(in ScoreInput) (float64, error) {
	return f(in)
}

// EqualScorer 等权评分：命中数 / 规则数 * 100
func EqualScorer() Scorer {
	return ScorerFunc(equalScore)
}

// WeightedScorer 加权评分：命中权重 / 总权重 * 100
func WeightedScorer() Scorer {
	return ScorerFunc(func(in ScoreInput) (float64, error) {
		if in.TotalWeight <= 0 {
			return equalScore(in)
		}
		return in.MatchedWeight / in.TotalWeight * 100, nil
	})
}

func equalScore(in ScoreInput) (float64, error) {
	if in.RuleCount == 0 {
		return 0, nil
	}
	return float64(in.Matched) / float64(in.RuleCount) * 100, nil
}

// clampPercentage 将百分比限制在 [0,100]
func clampPercentage(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
