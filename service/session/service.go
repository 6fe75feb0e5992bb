/*
 * @module service/session/service
 * @description 症状清单服务：会话的创建、勾选、重置、删除，防抖后自动诊断并通过事件推送结果
 * @architecture 分层架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 修改 -> 加锁读改写 -> 事件(loading) -> Debouncer -> 诊断 -> 版本校验 -> 事件(result)
 * @rules
 *   - 修改选择时取消尚未执行的计算，只保留最后一次
 *   - 计算完成时若 Version 已变化则丢弃结果
 *   - 选择为空时不计算，直接返回提示信息
 *   - 未知症状编码返回 ErrUnknownSymptom
 * @dependencies fishdisease-service/service/diagnosis, fishdisease-service/service/distributed_lock
 * @refs api/controllers/checklist_controller.go, service/scheduler/scheduler.go
 */

package session

import (
	"context"
	"errors"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/service/distributed_lock"
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/metrics"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const lockTTL = 5 * time.Second

// Settings 会话参数
type Settings struct {
	Debounce time.Duration
	TTL      time.Duration
}

// DefaultSettings 默认会话参数
func DefaultSettings() Settings {
	return Settings{Debounce: 500 * time.Millisecond, TTL: time.Hour}
}

// SettingsProvider 提供当前会话参数
type SettingsProvider interface {
	SessionSettings() Settings
}

// StaticSettings 固定参数
type StaticSettings Settings

// SessionSettings 实现 SettingsProvider
func (s StaticSettings) SessionSettings() Settings {
	return Settings(s)
}

// Service 症状清单服务
type Service struct {
	store    Store
	diag     *diagnosis.Service
	settings SettingsProvider
	lock     distributed_lock.DistributedLock
	now      func() time.Time

	mu          sync.Mutex
	debouncers  map[string]*diagnosis.Debouncer
	subscribers map[string]map[chan Event]struct{}
	tracked     map[string]struct{}
	closed      bool
	inflight    sync.WaitGroup
}

// NewService 创建症状清单服务
func NewService(store Store, diag *diagnosis.Service, settings SettingsProvider, lock distributed_lock.DistributedLock) *Service {
	if settings == nil {
		settings = StaticSettings(DefaultSettings())
	}
	if lock == nil {
		lock = distributed_lock.NewLocalLock()
	}
	return &Service{
		store:       store,
		diag:        diag,
		settings:    settings,
		lock:        lock,
		now:         time.Now,
		debouncers:  make(map[string]*diagnosis.Debouncer),
		subscribers: make(map[string]map[chan Event]struct{}),
		tracked:     make(map[string]struct{}),
	}
}

// Create 创建清单，可带初始选择
func (s *Service) Create(ctx context.Context, symptoms []string) (*Checklist, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	selected, err := s.validate(symptoms)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &Checklist{
		ID:        uuid.New().String(),
		Selected:  selected,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.settings.SessionSettings().TTL),
	}
	if len(selected) > 0 {
		c.Version = 1
		c.Loading = true
		c.Results = []diagnosis.Result{}
	} else {
		c.clearResults()
	}

	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	s.track(c.ID)

	if c.Loading {
		s.schedule(c.ID, c.Version)
	}
	return c.Clone(), nil
}

// Get 获取清单
func (s *Service) Get(ctx context.Context, id string) (*Checklist, error) {
	return s.store.Get(ctx, id)
}

// Toggle 勾选或取消某个症状
func (s *Service) Toggle(ctx context.Context, id, code string) (*Checklist, error) {
	code = knowledge.NormalizeCode(code)
	if !s.diag.KnowledgeBase().Snapshot().HasSymptom(code) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymptom, code)
	}

	return s.update(ctx, id, func(c *Checklist) EventType {
		c.toggle(code)
		return s.selectionChanged(c)
	})
}

// Select 整体替换选择
func (s *Service) Select(ctx context.Context, id string, symptoms []string) (*Checklist, error) {
	selected, err := s.validate(symptoms)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, id, func(c *Checklist) EventType {
		c.Selected = selected
		return s.selectionChanged(c)
	})
}

// Reset 清空选择与结果
func (s *Service) Reset(ctx context.Context, id string) (*Checklist, error) {
	return s.update(ctx, id, func(c *Checklist) EventType {
		c.Selected = []string{}
		c.Version++
		c.clearResults()
		return EventReset
	})
}

// Flush 立即计算尚未完成的结果
func (s *Service) Flush(ctx context.Context, id string) (*Checklist, error) {
	s.cancelPending(id)

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Loading {
		return c, nil
	}

	report := s.diag.Diagnose(ctx, diagnosis.Request{
		Source:    diagnosis.SourceChecklist,
		SessionID: id,
		Symptoms:  c.Selected,
	})
	return s.commit(ctx, id, c.Version, report)
}

// Delete 删除清单
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.forget(id)
	return nil
}

// Sweep 清理过期清单，返回清理数量
// 存储自行过期的清单（Redis TTL）通过逐个查询本实例跟踪的ID发现
func (s *Service) Sweep(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		return 0, err
	}
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
		s.forget(id)
	}

	for _, id := range s.knownIDs() {
		if gone[id] {
			continue
		}
		if _, err := s.store.Get(ctx, id); err != nil {
			if !errors.Is(err, ErrNotFound) {
				slog.Warn("检查症状清单是否过期失败", "id", id, "error", err)
				continue
			}
			gone[id] = true
			s.forget(id)
		}
	}

	if len(gone) > 0 {
		slog.Info("已清理过期症状清单", "count", len(gone))
	}
	return len(gone), nil
}

// knownIDs 本实例持有状态（跟踪、防抖、订阅）的清单ID
func (s *Service) knownIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.tracked)+len(s.subscribers))
	for id := range s.tracked {
		seen[id] = struct{}{}
	}
	for id := range s.debouncers {
		seen[id] = struct{}{}
	}
	for id := range s.subscribers {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids
}

func (s *Service) track(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracked[id]; !ok {
		s.tracked[id] = struct{}{}
		metrics.ChecklistsActive.Inc()
	}
}

// Subscribe 订阅清单事件，返回取消订阅函数
func (s *Service) Subscribe(id string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	subs, ok := s.subscribers[id]
	if !ok {
		subs = make(map[chan Event]struct{})
		s.subscribers[id] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if subs, ok := s.subscribers[id]; ok {
				if _, ok := subs[ch]; ok {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(s.subscribers, id)
				}
			}
		})
	}
}

// Close 停止所有待执行的计算并关闭订阅
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, d := range s.debouncers {
		d.Stop()
		delete(s.debouncers, id)
	}
	for id, subs := range s.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(s.subscribers, id)
	}
	s.mu.Unlock()

	s.inflight.Wait()
}

// update 在锁内读改写清单
func (s *Service) update(ctx context.Context, id string, mutate func(c *Checklist) EventType) (*Checklist, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	release, err := distributed_lock.Acquire(ctx, s.lock, "checklist:"+id, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	evType := mutate(c)
	now := s.now()
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(s.settings.SessionSettings().TTL)

	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	s.track(id)

	if c.Loading {
		s.schedule(id, c.Version)
	} else {
		s.cancelPending(id)
	}
	s.emit(evType, c)
	return c.Clone(), nil
}

// selectionChanged 选择变化后递增版本，非空时进入 loading
func (s *Service) selectionChanged(c *Checklist) EventType {
	c.Version++
	if len(c.Selected) == 0 {
		c.clearResults()
		return EventResult
	}
	c.Loading = true
	c.Message = ""
	return EventLoading
}

// commit 写入计算结果，版本不一致时丢弃
func (s *Service) commit(ctx context.Context, id string, version uint64, report *diagnosis.Report) (*Checklist, error) {
	release, err := distributed_lock.Acquire(ctx, s.lock, "checklist:"+id, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Version != version {
		metrics.StaleRecomputations.Inc()
		slog.Debug("丢弃过期的清单计算结果", "id", id, "computed", version, "current", c.Version)
		return c, nil
	}

	c.Results = report.Results
	c.Message = report.Message
	c.Loading = false
	c.ResultVersion = version
	c.KnowledgeVersion = report.KnowledgeVersion
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}

	s.emit(EventResult, c)
	return c.Clone(), nil
}

func (s *Service) schedule(id string, version uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delay := s.settings.SessionSettings().Debounce
	d, ok := s.debouncers[id]
	if !ok {
		d = diagnosis.NewDebouncer(delay)
		s.debouncers[id] = d
	}
	s.mu.Unlock()

	// 每次触发读取当前配置，运行中修改 session.debounce_ms 对已有清单同样生效
	d.TriggerAfter(delay, func() { s.recompute(id, version) })
}

func (s *Service) recompute(id string, version uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.forget(id)
		} else {
			slog.Error("读取症状清单失败", "id", id, "error", err)
		}
		return
	}
	if c.Version != version {
		metrics.StaleRecomputations.Inc()
		return
	}

	report := s.diag.Diagnose(ctx, diagnosis.Request{
		Source:    diagnosis.SourceChecklist,
		SessionID: id,
		Symptoms:  c.Selected,
	})
	if _, err := s.commit(ctx, id, version, report); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Error("保存清单计算结果失败", "id", id, "error", err)
	}
}

func (s *Service) cancelPending(id string) {
	s.mu.Lock()
	d, ok := s.debouncers[id]
	s.mu.Unlock()
	if ok {
		d.Cancel()
	}
}

// forget 释放清单相关的防抖器与订阅
func (s *Service) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tracked[id]; ok {
		delete(s.tracked, id)
		metrics.ChecklistsActive.Dec()
	}
	if d, ok := s.debouncers[id]; ok {
		d.Stop()
		delete(s.debouncers, id)
	}
	if subs, ok := s.subscribers[id]; ok {
		ev := Event{Type: EventDeleted, Timestamp: s.now()}
		for ch := range subs {
			select {
			case ch <- ev:
			default:
			}
			close(ch)
		}
		delete(s.subscribers, id)
	}
}

func (s *Service) emit(evType EventType, c *Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[c.ID]
	if len(subs) == 0 {
		return
	}
	ev := Event{Type: evType, Checklist: c.Clone(), Timestamp: s.now()}
	for ch := range subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("清单事件订阅者处理过慢，丢弃事件", "id", c.ID, "type", evType)
		}
	}
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// validate 规范化、去重并校验症状编码
func (s *Service) validate(symptoms []string) ([]string, error) {
	snap := s.diag.KnowledgeBase().Snapshot()
	selected := make([]string, 0, len(symptoms))
	seen := make(map[string]bool, len(symptoms))
	for _, raw := range symptoms {
		code := knowledge.NormalizeCode(raw)
		if code == "" || seen[code] {
			continue
		}
		if !snap.HasSymptom(code) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymptom, code)
		}
		seen[code] = true
		selected = append(selected, code)
	}
	return selected, nil
}
