package session

import (
	"context"
	"errors"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/service/knowledge"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestService(t *testing.T, debounce time.Duration) (*Service, *MemoryStore) {
	t.Helper()
	doc, err := knowledge.SeedDocument()
	require.NoError(t, err)
	snap, err := knowledge.BuildSnapshot(doc)
	require.NoError(t, err)

	diag := diagnosis.NewService(knowledge.NewStaticKnowledgeBase(snap), nil, nil)
	store := NewMemoryStore()
	svc := NewService(store, diag, StaticSettings{Debounce: debounce, TTL: time.Hour}, nil)
	t.Cleanup(svc.Close)
	return svc, store
}

func waitSettled(t *testing.T, svc *Service, id string) *Checklist {
	t.Helper()
	var c *Checklist
	require.Eventually(t, func() bool {
		var err error
		c, err = svc.Get(context.Background(), id)
		return err == nil && !c.Loading
	}, 2*time.Second, 5*time.Millisecond)
	return c
}

func TestService_CreateEmptyShowsPrompt(t *testing.T) {
	svc, _ := newTestService(t, 10*time.Millisecond)

	c, err := svc.Create(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.Loading)
	assert.Empty(t, c.Results)
	assert.Equal(t, diagnosis.MessageSelectSymptoms, c.Message)
}

func TestService_CreateWithInitialSelection(t *testing.T) {
	svc, _ := newTestService(t, 10*time.Millisecond)

	c, err := svc.Create(context.Background(), []string{"g02", "G03"})
	require.NoError(t, err)
	assert.True(t, c.Loading)
	assert.Equal(t, []string{"G02", "G03"}, c.Selected)

	settled := waitSettled(t, svc, c.ID)
	require.NotEmpty(t, settled.Results)
	assert.Equal(t, settled.Version, settled.ResultVersion)
}

func TestService_ToggleDebouncesAndComputes(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Millisecond)
	ctx := context.Background()

	c, err := svc.Create(ctx, nil)
	require.NoError(t, err)

	for _, code := range []string{"G02", "G03", "G04", "G13", "G01"} {
		c, err = svc.Toggle(ctx, c.ID, code)
		require.NoError(t, err)
		assert.True(t, c.Loading)
	}
	assert.Equal(t, uint64(5), c.Version)

	settled := waitSettled(t, svc, c.ID)
	assert.Equal(t, uint64(5), settled.ResultVersion)
	require.NotEmpty(t, settled.Results)
	assert.Equal(t, "P01", settled.Results[0].Code)
	assert.Equal(t, 100.0, settled.Results[0].Percentage)
	assert.Equal(t, 1, settled.Results[0].Rank)
}

func TestService_ToggleOffToEmptyClearsResults(t *testing.T) {
	svc, _ := newTestService(t, 10*time.Millisecond)
	ctx := context.Background()

	c, _ := svc.Create(ctx, []string{"G01"})
	waitSettled(t, svc, c.ID)

	c, err := svc.Toggle(ctx, c.ID, "g01")
	require.NoError(t, err)
	assert.Empty(t, c.Selected)
	assert.False(t, c.Loading)
	assert.Empty(t, c.Results)
	assert.Equal(t, diagnosis.MessageSelectSymptoms, c.Message)
}

func TestService_UnknownSymptom(t *testing.T) {
	svc, _ := newTestService(t, 10*time.Millisecond)
	ctx := context.Background()

	c, _ := svc.Create(ctx, nil)
	_, err := svc.Toggle(ctx, c.ID, "G99")
	assert.True(t, errors.Is(err, ErrUnknownSymptom))

	_, err = svc.Select(ctx, c.ID, []string{"G01", "nope"})
	assert.True(t, errors.Is(err, ErrUnknownSymptom))

	_, err = svc.Create(ctx, []string{"nope"})
	assert.True(t, errors.Is(err, ErrUnknownSymptom))

	_, err = svc.Toggle(ctx, "missing", "G01")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestService_StaleResultIsDiscarded(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	c, _ := svc.Create(ctx, []string{"G01"})
	staleVersion := c.Version
	staleReport := svc.diag.Diagnose(ctx, diagnosis.Request{Symptoms: c.Selected})

	c, err := svc.Toggle(ctx, c.ID, "G20")
	require.NoError(t, err)

	got, err := svc.commit(ctx, c.ID, staleVersion, staleReport)
	require.NoError(t, err)
	assert.True(t, got.Loading)
	assert.Equal(t, uint64(0), got.ResultVersion)

	flushed, err := svc.Flush(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, flushed.Loading)
	assert.Equal(t, flushed.Version, flushed.ResultVersion)
	assert.Equal(t, []string{"G01", "G20"}, flushed.Selected)
}

func TestService_ResetAndSelect(t *testing.T) {
	svc, _ := newTestService(t, 10*time.Millisecond)
	ctx := context.Background()

	c, _ := svc.Create(ctx, nil)
	c, err := svc.Select(ctx, c.ID, []string{"G08", "g07", "G08"})
	require.NoError(t, err)
	assert.Equal(t, []string{"G08", "G07"}, c.Selected)
	settled := waitSettled(t, svc, c.ID)
	assert.Equal(t, "P05", settled.Results[0].Code)

	c, err = svc.Reset(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Selected)
	assert.Empty(t, c.Results)
	assert.False(t, c.Loading)
	assert.Equal(t, diagnosis.MessageSelectSymptoms, c.Message)
}

func TestService_SubscribeReceivesEvents(t *testing.T) {
	svc, _ := newTestService(t, 10*time.Millisecond)
	ctx := context.Background()

	c, _ := svc.Create(ctx, nil)
	events, cancel := svc.Subscribe(c.ID)
	defer cancel()

	_, err := svc.Toggle(ctx, c.ID, "G11")
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, EventLoading, first.Type)

	select {
	case ev := <-events:
		assert.Equal(t, EventResult, ev.Type)
		require.NotEmpty(t, ev.Checklist.Results)
		assert.Equal(t, "P03", ev.Checklist.Results[0].Code)
	case <-time.After(2 * time.Second):
		t.Fatal("no result event")
	}

	require.NoError(t, svc.Delete(ctx, c.ID))
	ev, ok := <-events
	assert.True(t, ok)
	assert.Equal(t, EventDeleted, ev.Type)
	_, ok = <-events
	assert.False(t, ok)

	_, err = svc.Get(ctx, c.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestService_SweepRemovesExpired(t *testing.T) {
	svc, store := newTestService(t, time.Hour)
	ctx := context.Background()

	c, _ := svc.Create(ctx, []string{"G01"})
	_, _ = svc.Create(ctx, nil)
	require.Equal(t, 2, store.Len())

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, store.Len())

	svc.mu.Lock()
	_, pending := svc.debouncers[c.ID]
	svc.mu.Unlock()
	assert.False(t, pending)
}

func TestService_CloseStopsPendingWork(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc, _ := newTestService(t, 20*time.Millisecond)
	ctx := context.Background()

	c, _ := svc.Create(ctx, []string{"G01"})
	events, _ := svc.Subscribe(c.ID)
	svc.Close()

	_, ok := <-events
	assert.False(t, ok)

	_, err := svc.Toggle(ctx, c.ID, "G02")
	assert.True(t, errors.Is(err, ErrClosed))

	time.Sleep(50 * time.Millisecond)
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Loading)
}

// ttlStore 模拟由存储自身过期清单的后端，Sweep 不返回任何ID
type ttlStore struct {
	*MemoryStore
}

func (ttlStore) Sweep(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

func (s ttlStore) expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func TestService_SweepForgetsChecklistsExpiredByStore(t *testing.T) {
	doc, err := knowledge.SeedDocument()
	require.NoError(t, err)
	snap, err := knowledge.BuildSnapshot(doc)
	require.NoError(t, err)
	diag := diagnosis.NewService(knowledge.NewStaticKnowledgeBase(snap), nil, nil)

	store := ttlStore{NewMemoryStore()}
	svc := NewService(store, diag, StaticSettings{Debounce: time.Hour, TTL: time.Hour}, nil)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	pending, err := svc.Create(ctx, []string{"G01"})
	require.NoError(t, err)
	idle, err := svc.Create(ctx, nil)
	require.NoError(t, err)
	kept, err := svc.Create(ctx, nil)
	require.NoError(t, err)

	events, cancel := svc.Subscribe(pending.ID)
	defer cancel()

	store.expire(pending.ID)
	store.expire(idle.ID)

	n, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	select {
	case ev, ok := <-events:
		require.True(t, ok)
		assert.Equal(t, EventDeleted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no deleted event after expiry")
	}
	_, ok := <-events
	assert.False(t, ok)

	svc.mu.Lock()
	_, hasDebouncer := svc.debouncers[pending.ID]
	_, idleTracked := svc.tracked[idle.ID]
	_, keptTracked := svc.tracked[kept.ID]
	svc.mu.Unlock()
	assert.False(t, hasDebouncer)
	assert.False(t, idleTracked)
	assert.True(t, keptTracked)

	n, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// mutableSettings 运行中可修改的会话参数
type mutableSettings struct {
	mu       sync.Mutex
	settings Settings
}

func (m *mutableSettings) SessionSettings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *mutableSettings) setDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.Debounce = d
}

func TestService_DebounceChangeReachesExistingChecklists(t *testing.T) {
	doc, err := knowledge.SeedDocument()
	require.NoError(t, err)
	snap, err := knowledge.BuildSnapshot(doc)
	require.NoError(t, err)
	diag := diagnosis.NewService(knowledge.NewStaticKnowledgeBase(snap), nil, nil)

	settings := &mutableSettings{settings: Settings{Debounce: time.Hour, TTL: time.Hour}}
	svc := NewService(NewMemoryStore(), diag, settings, nil)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	c, err := svc.Create(ctx, []string{"G01"})
	require.NoError(t, err)
	assert.True(t, c.Loading)

	settings.setDebounce(10 * time.Millisecond)
	_, err = svc.Toggle(ctx, c.ID, "G02")
	require.NoError(t, err)

	settled := waitSettled(t, svc, c.ID)
	assert.Equal(t, settled.Version, settled.ResultVersion)
}
