/*
 * @module service/metrics/metrics
 * @description Prometheus 指标定义，由 /metrics 暴露
 * @architecture 基础设施层 - 可观测性
 * @documentReference DESIGN.md
 * @stateFlow 业务事件 -> 指标累加 -> promhttp 导出
 * @rules 指标名统一使用 fishdx 命名空间
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go, api/middleware/metrics.go
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fishdx"

var (
	// DiagnosesTotal 诊断次数，source: api / checklist
	DiagnosesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "diagnoses_total",
		Help:      "Number of symptom matching runs.",
	}, []string{"source"})

	// DiagnosisDuration 单次匹配耗时
	DiagnosisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "diagnosis_duration_seconds",
		Help:      "Time spent matching observed symptoms against the knowledge base.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
	})

	// DiagnosisCandidates 每次匹配返回的候选鱼病数量
	DiagnosisCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "diagnosis_candidates",
		Help:      "Number of diseases returned per matching run.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
	})

	// ScoringFallbacks 评分脚本或推理引擎失败后回退的次数
	ScoringFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scoring_fallbacks_total",
		Help:      "Matcher fallbacks to the default engine or scorer.",
	}, []string{"reason"})

	// ChecklistsActive 当前活跃的症状清单会话
	ChecklistsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "checklists_active",
		Help:      "Checklist sessions currently tracked by this instance.",
	})

	// StaleRecomputations 被丢弃的过期计算
	StaleRecomputations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checklist_stale_recomputations_total",
		Help:      "Recomputations discarded because the checklist changed meanwhile.",
	})

	// KnowledgeReloads 知识库加载次数，result: success / failure
	KnowledgeReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "knowledge_reloads_total",
		Help:      "Knowledge base snapshot reloads.",
	}, []string{"result"})

	// KnowledgeDiseases 当前快照中的鱼病数量
	KnowledgeDiseases = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "knowledge_diseases",
		Help:      "Diseases in the active knowledge snapshot.",
	})

	// PublishFailures 诊断事件发布失败次数
	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_failures_total",
		Help:      "Diagnosis events that could not be published.",
	}, []string{"driver"})

	// HTTPRequestsTotal HTTP请求数
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
