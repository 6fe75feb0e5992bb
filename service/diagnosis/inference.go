/*
 * @module service/diagnosis/inference
 * @description 前向链推理：由观察到的症状推导每个鱼病命中的症状集合
 * @architecture 策略模式 - overlap(集合求交) / datalog(Mangle 求不动点)
 * @documentReference DESIGN.md
 * @stateFlow Snapshot + 观察集合 -> matched(鱼病, 症状) 事实
 * @rules 两种引擎对同一输入必须给出相同的命中集合
 * @dependencies github.com/google/mangle
 * @refs service/diagnosis/matcher.go
 */

package diagnosis

import (
	"fishdisease-service/service/knowledge"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// Inference 鱼病编码 -> 命中的症状编码集合
type Inference map[string]map[string]bool

func (inf Inference) add(disease, symptom string) {
	hits, ok := inf[disease]
	if !ok {
		hits = make(map[string]bool)
		inf[disease] = hits
	}
	hits[symptom] = true
}

// Inferencer 推理引擎
type Inferencer interface {
	Infer(snap *knowledge.Snapshot, observed map[string]bool) (Inference, error)
}

// NewInferencer 按引擎名创建推理引擎
func NewInferencer(e Engine) (Inferencer, error) {
	switch e {
	case EngineOverlap, "":
		return overlapInferencer{}, nil
	case EngineDatalog:
		return datalogInferencer{}, nil
	}
	return nil, fmt.Errorf("%w: 未知的推理引擎 %q", ErrInvalidOptions, e)
}

type overlapInferencer struct{}

func (overlapInferencer) Infer(snap *knowledge.Snapshot, observed map[string]bool) (Inference, error) {
	inf := make(Inference)
	for _, d := range snap.Diseases() {
		for _, r := range d.Rules {
			if observed[r.Symptom] {
				inf.add(d.Code, r.Symptom)
			}
		}
	}
	return inf, nil
}

// matchedRule 鱼病的某条规则症状被观察到即为命中
const matchedRule = "matched(D, S) :- signature(D, S), observed(S).\n"

type datalogInferencer struct{}

func (datalogInferencer) Infer(snap *knowledge.Snapshot, observed map[string]bool) (Inference, error) {
	inf := make(Inference)
	if len(observed) == 0 || len(snap.Diseases()) == 0 {
		return inf, nil
	}

	program := datalogProgram(snap, observed)
	unit, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		return nil, fmt.Errorf("解析推理程序失败: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("分析推理程序失败: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(programInfo, store); err != nil {
		return nil, fmt.Errorf("执行推理失败: %w", err)
	}

	query := ast.NewQuery(ast.PredicateSym{Symbol: "matched", Arity: 2})
	err = store.GetFacts(query, func(atom ast.Atom) error {
		if len(atom.Args) != 2 {
			return fmt.Errorf("matched 事实参数个数错误: %d", len(atom.Args))
		}
		disease, ok := stringConstant(atom.Args[0])
		if !ok {
			return fmt.Errorf("matched 事实的鱼病参数不是字符串: %v", atom.Args[0])
		}
		symptom, ok := stringConstant(atom.Args[1])
		if !ok {
			return fmt.Errorf("matched 事实的症状参数不是字符串: %v", atom.Args[1])
		}
		inf.add(disease, symptom)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inf, nil
}

// datalogProgram 生成规则与事实
func datalogProgram(snap *knowledge.Snapshot, observed map[string]bool) string {
	var b strings.Builder
	b.WriteString(matchedRule)
	for _, d := range snap.Diseases() {
		for _, r := range d.Rules {
			fmt.Fprintf(&b, "signature(%s, %s).\n", strconv.Quote(d.Code), strconv.Quote(r.Symptom))
		}
	}

	codes := make([]string, 0, len(observed))
	for code := range observed {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(&b, "observed(%s).\n", strconv.Quote(code))
	}
	return b.String()
}

func stringConstant(term ast.BaseTerm) (string, bool) {
	c, ok := term.(ast.Constant)
	if !ok || c.Type != ast.StringType {
		return "", false
	}
	return c.Symbol, true
}
