/*
 * @module service/knowledge/document
 * @description 知识库文档（YAML）定义、解析、序列化与校验
 * @architecture 分层架构 - 领域层
 * @documentReference DESIGN.md
 * @stateFlow YAML -> Document -> 校验 -> 快照/入库
 * @rules 编码只允许大写字母、数字、下划线与连字符；规则引用的症状必须存在
 * @dependencies gopkg.in/yaml.v3, golang.org/x/text/cases
 * @refs service/knowledge/snapshot.go
 */

package knowledge

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument 知识库文档校验失败
var ErrInvalidDocument = errors.New("知识库文档无效")

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// Document 知识库文档
type Document struct {
	Version  int            `json:"version" yaml:"version"`
	Symptoms []SymptomEntry `json:"symptoms" yaml:"symptoms"`
	Diseases []DiseaseEntry `json:"diseases" yaml:"diseases"`
}

// SymptomEntry 症状条目
type SymptomEntry struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// DiseaseEntry 鱼病条目
type DiseaseEntry struct {
	Code      string      `json:"code" yaml:"code"`
	Name      string      `json:"name" yaml:"name"`
	Solution  string      `json:"solution" yaml:"solution"`
	Treatment string      `json:"treatment" yaml:"treatment"`
	Rules     []RuleEntry `json:"rules" yaml:"rules"`
}

// RuleEntry 规则条目，YAML 中可简写为症状编码字符串
type RuleEntry struct {
	Symptom string  `json:"symptom" yaml:"symptom"`
	Weight  float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// UnmarshalYAML 支持 "- G01" 与 "- {symptom: G01, weight: 2}" 两种写法
func (r *RuleEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Symptom = node.Value
		r.Weight = 0
		return nil
	}
	type plain RuleEntry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = RuleEntry(p)
	return nil
}

// ParseDocument 解析 YAML 知识库文档，解析后统一规范化编码
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: 解析YAML失败: %v", ErrInvalidDocument, err)
	}
	doc.Normalize()
	return &doc, nil
}

// Encode 序列化为 YAML
func (d *Document) Encode() ([]byte, error) {
	return yaml.Marshal(d)
}

// Normalize 规范化编码与文本，缺省权重补为1
func (d *Document) Normalize() {
	for i := range d.Symptoms {
		d.Symptoms[i].Code = NormalizeCode(d.Symptoms[i].Code)
		d.Symptoms[i].Name = strings.TrimSpace(d.Symptoms[i].Name)
	}
	for i := range d.Diseases {
		dis := &d.Diseases[i]
		dis.Code = NormalizeCode(dis.Code)
		dis.Name = strings.TrimSpace(dis.Name)
		dis.Solution = strings.TrimSpace(dis.Solution)
		dis.Treatment = strings.TrimSpace(dis.Treatment)
		for j := range dis.Rules {
			dis.Rules[j].Symptom = NormalizeCode(dis.Rules[j].Symptom)
			if dis.Rules[j].Weight == 0 {
				dis.Rules[j].Weight = 1
			}
		}
	}
}

// Validate 校验文档，返回包含全部问题的错误
func (d *Document) Validate() error {
	var problems []error

	symptoms := make(map[string]bool, len(d.Symptoms))
	for i, s := range d.Symptoms {
		if !codePattern.MatchString(s.Code) {
			problems = append(problems, fmt.Errorf("第%d个症状编码无效: %q", i+1, s.Code))
			continue
		}
		if symptoms[s.Code] {
			problems = append(problems, fmt.Errorf("症状编码重复: %s", s.Code))
		}
		if s.Name == "" {
			problems = append(problems, fmt.Errorf("症状 %s 名称不能为空", s.Code))
		}
		symptoms[s.Code] = true
	}

	diseases := make(map[string]bool, len(d.Diseases))
	for i, dis := range d.Diseases {
		if !codePattern.MatchString(dis.Code) {
			problems = append(problems, fmt.Errorf("第%d个鱼病编码无效: %q", i+1, dis.Code))
			continue
		}
		if diseases[dis.Code] {
			problems = append(problems, fmt.Errorf("鱼病编码重复: %s", dis.Code))
		}
		diseases[dis.Code] = true
		if dis.Name == "" {
			problems = append(problems, fmt.Errorf("鱼病 %s 名称不能为空", dis.Code))
		}
		if len(dis.Rules) == 0 {
			problems = append(problems, fmt.Errorf("鱼病 %s 至少需要一条规则", dis.Code))
		}

		seen := make(map[string]bool, len(dis.Rules))
		for _, rule := range dis.Rules {
			if !symptoms[rule.Symptom] {
				problems = append(problems, fmt.Errorf("鱼病 %s 引用了不存在的症状: %s", dis.Code, rule.Symptom))
			}
			if seen[rule.Symptom] {
				problems = append(problems, fmt.Errorf("鱼病 %s 的症状 %s 重复", dis.Code, rule.Symptom))
			}
			if !(rule.Weight > 0) || math.IsInf(rule.Weight, 0) {
				problems = append(problems, fmt.Errorf("鱼病 %s 的症状 %s 权重必须是大于0的有限数", dis.Code, rule.Symptom))
			}
			seen[rule.Symptom] = true
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(problems...))
	}
	return nil
}

// NormalizeCode 规范化症状/鱼病编码（去空白并转大写）
func NormalizeCode(code string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(code))
}

// FoldText 大小写折叠，用于名称检索
func FoldText(s string) string {
	return cases.Fold().String(s)
}
