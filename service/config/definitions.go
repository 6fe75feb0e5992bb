package config

import (
	"errors"
	"fishdisease-service/service/diagnosis"
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

var (
	// ErrUnknownKey 未定义的配置键
	ErrUnknownKey = errors.New("未知的配置项")
	// ErrInvalidValue 配置值无效
	ErrInvalidValue = errors.New("配置值无效")
)

// 配置键
const (
	KeyMatcherMinPercentage = "matcher.min_percentage"
	KeyMatcherTieBreak      = "matcher.tie_break"
	KeyMatcherWeighting     = "matcher.weighting"
	KeyMatcherEngine        = "matcher.engine"
	KeyMatcherScoreScript   = "matcher.score_script"
	KeySessionDebounceMS    = "session.debounce_ms"
	KeySessionTTLMinutes    = "session.ttl_minutes"
)

// Definition 配置项定义
type Definition struct {
	Key         string
	Default     string
	Description string
	ValueType   string
	validate    func(value string) error
}

var definitions = map[string]Definition{
	KeyMatcherMinPercentage: {
		Key:         KeyMatcherMinPercentage,
		Default:     "0",
		Description: "匹配百分比需严格大于该值才会返回",
		ValueType:   "float",
		validate: func(v string) error {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return err
			}
			if f < 0 || f >= 100 {
				return fmt.Errorf("取值范围为 [0,100)")
			}
			return nil
		},
	},
	KeyMatcherTieBreak: {
		Key:         KeyMatcherTieBreak,
		Default:     string(diagnosis.TieBreakCode),
		Description: "百分比相同时的排序方式: code / matched / table",
		ValueType:   "string",
		validate: func(v string) error {
			_, err := diagnosis.ParseTieBreak(v)
			return err
		},
	},
	KeyMatcherWeighting: {
		Key:         KeyMatcherWeighting,
		Default:     string(diagnosis.WeightingEqual),
		Description: "百分比计算方式: equal / weighted / script",
		ValueType:   "string",
		validate: func(v string) error {
			_, err := diagnosis.ParseWeighting(v)
			return err
		},
	},
	KeyMatcherEngine: {
		Key:         KeyMatcherEngine,
		Default:     string(diagnosis.EngineOverlap),
		Description: "推理引擎: overlap / datalog",
		ValueType:   "string",
		validate: func(v string) error {
			_, err := diagnosis.ParseEngine(v)
			return err
		},
	},
	KeyMatcherScoreScript: {
		Key:         KeyMatcherScoreScript,
		Default:     "",
		Description: "weighting=script 时使用的评分脚本",
		ValueType:   "script",
		validate: func(v string) error {
			if v == "" {
				return nil
			}
			return diagnosis.ValidateScoreScript(v)
		},
	},
	KeySessionDebounceMS: {
		Key:         KeySessionDebounceMS,
		Default:     "500",
		Description: "症状清单修改后等待多少毫秒再重新诊断",
		ValueType:   "int",
		validate: func(v string) error {
			n, err := cast.ToIntE(v)
			if err != nil {
				return err
			}
			if n < 0 || n > 60000 {
				return fmt.Errorf("取值范围为 [0,60000]")
			}
			return nil
		},
	},
	KeySessionTTLMinutes: {
		Key:         KeySessionTTLMinutes,
		Default:     "60",
		Description: "症状清单无操作后保留的分钟数",
		ValueType:   "int",
		validate: func(v string) error {
			n, err := cast.ToIntE(v)
			if err != nil {
				return err
			}
			if n <= 0 {
				return fmt.Errorf("必须大于0")
			}
			return nil
		},
	},
}

// Lookup 查找配置项定义
func Lookup(key string) (Definition, bool) {
	d, ok := definitions[key]
	return d, ok
}

// Keys 所有配置键，按字母排序
func Keys() []string {
	keys := make([]string, 0, len(definitions))
	for k := range definitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate 校验单个配置值
func (d Definition) Validate(value string) error {
	if d.validate == nil {
		return nil
	}
	if err := d.validate(value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, d.Key, err)
	}
	return nil
}
