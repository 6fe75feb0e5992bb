/**
 * @module SchedulerService
 * @description 定时任务调度器，负责过期症状清单清理与知识库定时刷新
 * @architecture 基于 robfig/cron 的调度器模式
 * @documentReference DESIGN.md
 * @stateFlow 注册任务 -> Start -> cron 触发 -> 执行 -> 记录状态
 * @rules 同一任务上一次未结束时跳过本次触发；任务 panic 被恢复并记录
 * @dependencies github.com/robfig/cron/v3
 * @refs service/init.go, service/session/service.go, service/knowledge/knowledge_base.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job 定时任务
type Job struct {
	Name string
	// Spec 带秒字段的 cron 表达式
	Spec string
	Run  func(ctx context.Context) error
}

// JobStatus 任务执行状态
type JobStatus struct {
	Name      string    `json:"name"`
	Spec      string    `json:"spec"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	NextRun   time.Time `json:"next_run,omitempty"`
}

// SchedulerService 调度器服务
type SchedulerService struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	status  map[string]*JobStatus
	started bool
}

// NewSchedulerService 创建调度器服务
func NewSchedulerService() *SchedulerService {
	ctx, cancel := context.WithCancel(context.Background())

	logger := cron.VerbosePrintfLogger(log.New(os.Stderr, "cron: ", log.LstdFlags))
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &SchedulerService{
		cron:    c,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		status:  make(map[string]*JobStatus),
	}
}

// AddJob 注册任务，同名任务会被替换
func (s *SchedulerService) AddJob(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("任务名称和执行函数不能为空")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[job.Name]; ok {
		s.cron.Remove(id)
	}
	id, err := s.cron.AddFunc(job.Spec, func() { s.execute(job.Name) })
	if err != nil {
		return fmt.Errorf("任务 %s 的 cron 表达式无效: %w", job.Name, err)
	}

	s.jobs[job.Name] = job
	s.entries[job.Name] = id
	if _, ok := s.status[job.Name]; !ok {
		s.status[job.Name] = &JobStatus{Name: job.Name}
	}
	s.status[job.Name].Spec = job.Spec
	slog.Info("已注册定时任务", "job", job.Name, "spec", job.Spec)
	return nil
}

// Start 启动调度器
func (s *SchedulerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	slog.Info("定时任务调度器已启动", "jobs", len(s.jobs))
}

// Stop 停止调度器并等待运行中的任务结束
func (s *SchedulerService) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	slog.Info("定时任务调度器已停止")
}

// RunNow 立即执行一次任务
func (s *SchedulerService) RunNow(name string) error {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("任务不存在: %s", name)
	}
	return s.execute(name)
}

// Status 任务状态列表
func (s *SchedulerService) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.status))
	for name, st := range s.status {
		item := *st
		if id, ok := s.entries[name]; ok {
			item.NextRun = s.cron.Entry(id).Next
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *SchedulerService) execute(name string) error {
	s.mu.Lock()
	job := s.jobs[name]
	s.mu.Unlock()

	start := time.Now()
	err := job.Run(s.ctx)

	s.mu.Lock()
	st := s.status[name]
	st.LastRun = start
	st.Runs++
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("定时任务执行失败", "job", name, "duration", time.Since(start), "error", err)
		return err
	}
	slog.Debug("定时任务执行完成", "job", name, "duration", time.Since(start))
	return nil
}
