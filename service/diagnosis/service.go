/*
 * @module service/diagnosis/service
 * @description 诊断服务：读取当前知识库快照与匹配参数，执行匹配并生成诊断报告
 * @architecture 分层架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 请求 -> Observe -> Matcher(按参数缓存) -> Report -> 发布诊断事件
 * @rules
 *   - 参数无效或脚本编译失败时使用默认参数，并记录错误日志
 *   - 空选择与无匹配返回提示信息而非错误
 * @dependencies fishdisease-service/service/knowledge, fishdisease-service/service/notify
 * @refs api/controllers/diagnosis_controller.go, service/session/service.go
 */

package diagnosis

import (
	"context"
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/metrics"
	"fishdisease-service/service/notify"
	"log/slog"
	"sync"
	"time"
)

const (
	// MessageSelectSymptoms 未选择任何症状时的提示
	MessageSelectSymptoms = "Silakan pilih gejala terlebih dahulu"
	// MessageNoMatch 没有匹配鱼病时的提示
	MessageNoMatch = "Tidak ditemukan penyakit yang cocok dengan gejala yang dipilih"
)

const (
	// SourceAPI 直接调用诊断接口
	SourceAPI = "api"
	// SourceChecklist 症状清单会话自动计算
	SourceChecklist = "checklist"
	// SourceCLI 命令行
	SourceCLI = "cli"
)

// OptionsProvider 提供当前匹配参数
type OptionsProvider interface {
	MatcherOptions() Options
}

// StaticOptions 固定参数
type StaticOptions Options

// MatcherOptions 实现 OptionsProvider
func (o StaticOptions) MatcherOptions() Options {
	return Options(o)
}

// Request 诊断请求
type Request struct {
	Source    string
	SessionID string
	Symptoms  []string
	// Overrides 非空时覆盖配置中的参数
	Overrides *Options
}

// Report 诊断报告
type Report struct {
	Symptoms         []string  `json:"symptoms"`
	Ignored          []string  `json:"ignored,omitempty"`
	Results          []Result  `json:"results"`
	Message          string    `json:"message,omitempty"`
	Options          Options   `json:"options"`
	KnowledgeVersion string    `json:"knowledge_version"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Service 诊断服务
type Service struct {
	kb        *knowledge.KnowledgeBase
	options   OptionsProvider
	publisher notify.Publisher

	mu       sync.Mutex
	matchers map[Options]*Matcher
}

// NewService 创建诊断服务
func NewService(kb *knowledge.KnowledgeBase, options OptionsProvider, publisher notify.Publisher) *Service {
	if options == nil {
		options = StaticOptions(DefaultOptions())
	}
	if publisher == nil {
		publisher = notify.NoopPublisher{}
	}
	return &Service{kb: kb, options: options, publisher: publisher, matchers: make(map[Options]*Matcher)}
}

// KnowledgeBase 知识库
func (s *Service) KnowledgeBase() *knowledge.KnowledgeBase {
	return s.kb
}

// CurrentOptions 当前生效的匹配参数
func (s *Service) CurrentOptions() Options {
	return s.options.MatcherOptions()
}

// Diagnose 执行诊断
func (s *Service) Diagnose(ctx context.Context, req Request) *Report {
	start := time.Now()
	snap := s.kb.Snapshot()

	var matcher *Matcher
	if req.Overrides != nil {
		matcher = s.matcherFor(*req.Overrides)
	} else {
		matcher = s.matcherFor(s.options.MatcherOptions())
	}

	obs := Observe(snap, req.Symptoms)
	results := matcher.MatchObservation(snap, obs)

	report := &Report{
		Symptoms:         obs.Recognized,
		Ignored:          obs.Ignored,
		Results:          results,
		Options:          matcher.Options(),
		KnowledgeVersion: snap.Version(),
		GeneratedAt:      time.Now(),
	}
	switch {
	case len(obs.Recognized) == 0:
		report.Message = MessageSelectSymptoms
	case len(results) == 0:
		report.Message = MessageNoMatch
	}

	source := req.Source
	if source == "" {
		source = SourceAPI
	}
	metrics.DiagnosesTotal.WithLabelValues(source).Inc()
	metrics.DiagnosisDuration.Observe(time.Since(start).Seconds())
	metrics.DiagnosisCandidates.Observe(float64(len(results)))

	if len(obs.Recognized) > 0 {
		s.publish(ctx, source, req.SessionID, report)
	}
	return report
}

// maxCachedMatchers 按参数缓存的匹配器上限，超出后整体清空
const maxCachedMatchers = 32

// matcherFor 按参数复用匹配器，配置参数与请求覆盖参数互不淘汰
func (s *Service) matcherFor(opts Options) *Matcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.matchers[opts]; ok {
		return m
	}

	m, err := NewMatcher(opts)
	if err != nil {
		slog.Error("匹配参数无效，使用默认参数", "options", opts, "error", err)
		metrics.ScoringFallbacks.WithLabelValues("options").Inc()
		fallback := DefaultOptions()
		fallback.MinPercentage = opts.MinPercentage
		if m, err = NewMatcher(fallback); err != nil {
			m = MustNewMatcher(DefaultOptions())
		}
		// 不缓存回退结果，参数修正后立即生效
		return m
	}
	if len(s.matchers) >= maxCachedMatchers {
		clear(s.matchers)
	}
	s.matchers[opts] = m
	return m
}

func (s *Service) publish(ctx context.Context, source, sessionID string, report *Report) {
	candidates := make([]notify.Candidate, 0, len(report.Results))
	for _, r := range report.Results {
		candidates = append(candidates, notify.Candidate{Code: r.Code, Name: r.Name, Percentage: r.Percentage})
	}
	event := notify.NewDiagnosisEvent(source, sessionID, report.Symptoms, candidates, report.KnowledgeVersion)
	if err := s.publisher.Publish(ctx, event); err != nil {
		metrics.PublishFailures.WithLabelValues(s.publisher.Driver()).Inc()
		slog.Warn("发布诊断事件失败", "error", err)
	}
}
