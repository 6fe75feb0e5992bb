/*
 * @module service/knowledge/snapshot
 * @description 知识库只读快照，诊断匹配在快照上进行
 * @architecture 分层架构 - 领域层
 * @documentReference DESIGN.md
 * @stateFlow Document -> 校验 -> 构建索引 -> 只读快照
 * @rules 快照构建后不可变，可被多个协程并发读取
 * @dependencies crypto/sha256
 * @refs service/diagnosis/matcher.go
 */

package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Symptom 快照中的症状
type Symptom struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Rule 快照中的诊断规则
type Rule struct {
	Symptom string  `json:"symptom"`
	Weight  float64 `json:"weight"`
}

// Disease 快照中的鱼病
type Disease struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Solution  string `json:"solution"`
	Treatment string `json:"treatment"`
	Rules     []Rule `json:"rules"`
	// Position 知识库中的原始顺序
	Position int `json:"-"`
}

// TotalWeight 规则权重之和
func (d Disease) TotalWeight() float64 {
	var total float64
	for _, r := range d.Rules {
		total += r.Weight
	}
	return total
}

// Snapshot 知识库只读快照
type Snapshot struct {
	version    string
	loadedAt   time.Time
	symptoms   []Symptom
	diseases   []Disease
	symptomIdx map[string]int
	diseaseIdx map[string]int
}

// BuildSnapshot 由文档构建快照，文档会先被规范化和校验
func BuildSnapshot(doc *Document) (*Snapshot, error) {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		loadedAt:   time.Now(),
		symptoms:   make([]Symptom, 0, len(doc.Symptoms)),
		diseases:   make([]Disease, 0, len(doc.Diseases)),
		symptomIdx: make(map[string]int, len(doc.Symptoms)),
		diseaseIdx: make(map[string]int, len(doc.Diseases)),
	}
	for i, s := range doc.Symptoms {
		snap.symptoms = append(snap.symptoms, Symptom{Code: s.Code, Name: s.Name})
		snap.symptomIdx[s.Code] = i
	}
	for i, d := range doc.Diseases {
		rules := make([]Rule, 0, len(d.Rules))
		for _, r := range d.Rules {
			rules = append(rules, Rule{Symptom: r.Symptom, Weight: r.Weight})
		}
		snap.diseases = append(snap.diseases, Disease{
			Code:      d.Code,
			Name:      d.Name,
			Solution:  d.Solution,
			Treatment: d.Treatment,
			Rules:     rules,
			Position:  i,
		})
		snap.diseaseIdx[d.Code] = i
	}
	snap.version = fingerprint(doc)
	return snap, nil
}

// emptySnapshot 空知识库
func emptySnapshot() *Snapshot {
	return &Snapshot{
		version:    "empty",
		loadedAt:   time.Now(),
		symptomIdx: map[string]int{},
		diseaseIdx: map[string]int{},
	}
}

// Version 快照内容指纹
func (s *Snapshot) Version() string {
	return s.version
}

// LoadedAt 快照构建时间
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Symptoms 全部症状（只读，调用方不得修改）
func (s *Snapshot) Symptoms() []Symptom {
	return s.symptoms
}

// Diseases 全部鱼病（只读，调用方不得修改）
func (s *Snapshot) Diseases() []Disease {
	return s.diseases
}

// lookup 编码大小写不敏感，先按原样查找
func lookup(idx map[string]int, code string) (int, bool) {
	if i, ok := idx[code]; ok {
		return i, true
	}
	i, ok := idx[NormalizeCode(code)]
	return i, ok
}

// Symptom 按编码查找症状
func (s *Snapshot) Symptom(code string) (Symptom, bool) {
	i, ok := lookup(s.symptomIdx, code)
	if !ok {
		return Symptom{}, false
	}
	return s.symptoms[i], true
}

// Disease 按编码查找鱼病
func (s *Snapshot) Disease(code string) (Disease, bool) {
	i, ok := lookup(s.diseaseIdx, code)
	if !ok {
		return Disease{}, false
	}
	return s.diseases[i], true
}

// HasSymptom 症状编码是否存在
func (s *Snapshot) HasSymptom(code string) bool {
	_, ok := lookup(s.symptomIdx, code)
	return ok
}

// SearchSymptoms 按名称（大小写不敏感）或编码检索症状
func (s *Snapshot) SearchSymptoms(query string) []Symptom {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.symptoms
	}
	folded := FoldText(query)
	code := NormalizeCode(query)

	var out []Symptom
	for _, sym := range s.symptoms {
		if sym.Code == code || strings.Contains(FoldText(sym.Name), folded) {
			out = append(out, sym)
		}
	}
	return out
}

// Document 将快照还原为文档
func (s *Snapshot) Document() *Document {
	doc := &Document{Version: 1}
	for _, sym := range s.symptoms {
		doc.Symptoms = append(doc.Symptoms, SymptomEntry{Code: sym.Code, Name: sym.Name})
	}
	for _, d := range s.diseases {
		entry := DiseaseEntry{
			Code:      d.Code,
			Name:      d.Name,
			Solution:  d.Solution,
			Treatment: d.Treatment,
		}
		for _, r := range d.Rules {
			entry.Rules = append(entry.Rules, RuleEntry{Symptom: r.Symptom, Weight: r.Weight})
		}
		doc.Diseases = append(doc.Diseases, entry)
	}
	return doc
}

// fingerprint 计算文档内容指纹
func fingerprint(doc *Document) string {
	data, _ := json.Marshal(doc)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}
