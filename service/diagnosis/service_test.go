package diagnosis

import (
	"context"
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/notify"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*notify.DiagnosisEvent
}

func (c *capturePublisher) Publish(_ context.Context, event *notify.DiagnosisEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) Driver() string { return "capture" }

func (c *capturePublisher) Close() error { return nil }

func newTestService(t *testing.T, opts Options) (*Service, *capturePublisher) {
	t.Helper()
	pub := &capturePublisher{}
	kb := knowledge.NewStaticKnowledgeBase(seedSnapshot(t))
	return NewService(kb, StaticOptions(opts), pub), pub
}

func TestService_DiagnoseEmptySelection(t *testing.T) {
	svc, pub := newTestService(t, DefaultOptions())

	report := svc.Diagnose(context.Background(), Request{Symptoms: nil})
	assert.Empty(t, report.Results)
	assert.Equal(t, MessageSelectSymptoms, report.Message)
	assert.Empty(t, pub.events)

	report = svc.Diagnose(context.Background(), Request{Symptoms: []string{"ZZ"}})
	assert.Equal(t, MessageSelectSymptoms, report.Message)
	assert.Equal(t, []string{"ZZ"}, report.Ignored)
}

func TestService_DiagnoseRanksCandidates(t *testing.T) {
	svc, pub := newTestService(t, DefaultOptions())

	report := svc.Diagnose(context.Background(), Request{
		Source:    SourceChecklist,
		SessionID: "sess-1",
		Symptoms:  []string{"g02", "G03", "G04", "G13", "G01"},
	})

	require.NotEmpty(t, report.Results)
	assert.Equal(t, "P01", report.Results[0].Code)
	assert.Equal(t, 100.0, report.Results[0].Percentage)
	assert.Empty(t, report.Message)
	assert.Equal(t, []string{"G02", "G03", "G04", "G13", "G01"}, report.Symptoms)
	assert.Equal(t, svc.KnowledgeBase().Snapshot().Version(), report.KnowledgeVersion)

	require.Len(t, pub.events, 1)
	assert.Equal(t, SourceChecklist, pub.events[0].Source)
	assert.Equal(t, "sess-1", pub.events[0].SessionID)
	assert.Equal(t, "P01", pub.events[0].Candidates[0].Code)
}

func TestService_DiagnoseNoMatchMessage(t *testing.T) {
	opts := DefaultOptions()
	opts.MinPercentage = 90
	svc, _ := newTestService(t, opts)

	report := svc.Diagnose(context.Background(), Request{Symptoms: []string{"G01"}})
	assert.Empty(t, report.Results)
	assert.Equal(t, MessageNoMatch, report.Message)
}

func TestService_OverridesAndInvalidOptions(t *testing.T) {
	svc, _ := newTestService(t, DefaultOptions())

	override := DefaultOptions()
	override.MinPercentage = 40
	report := svc.Diagnose(context.Background(), Request{Symptoms: []string{"G02", "G03"}, Overrides: &override})
	for _, r := range report.Results {
		assert.Greater(t, r.Percentage, 40.0)
	}
	assert.Equal(t, 40.0, report.Options.MinPercentage)

	broken := DefaultOptions()
	broken.Engine = "prolog"
	report = svc.Diagnose(context.Background(), Request{Symptoms: []string{"G02"}, Overrides: &broken})
	assert.Equal(t, EngineOverlap, report.Options.Engine)
	assert.NotEmpty(t, report.Results)
}

func TestService_MatcherIsReusedForSameOptions(t *testing.T) {
	svc, _ := newTestService(t, DefaultOptions())

	first := svc.matcherFor(DefaultOptions())
	second := svc.matcherFor(DefaultOptions())
	assert.Same(t, first, second)

	opts := DefaultOptions()
	opts.TieBreak = TieBreakTable
	override := svc.matcherFor(opts)
	assert.NotSame(t, first, override)

	// 覆盖参数不淘汰配置参数对应的匹配器
	assert.Same(t, first, svc.matcherFor(DefaultOptions()))
	assert.Same(t, override, svc.matcherFor(opts))
}

func TestService_MatcherCacheIsBounded(t *testing.T) {
	svc, _ := newTestService(t, DefaultOptions())

	for i := 0; i < maxCachedMatchers*2; i++ {
		opts := DefaultOptions()
		opts.MinPercentage = float64(i)
		svc.matcherFor(opts)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.LessOrEqual(t, len(svc.matchers), maxCachedMatchers)
}
