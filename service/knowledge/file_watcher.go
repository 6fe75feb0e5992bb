/*
 * @module service/knowledge/file_watcher
 * @description 监听知识库YAML文件，文件保存后自动导入
 * @architecture 事件驱动 - 基础设施层
 * @documentReference DESIGN.md
 * @stateFlow fsnotify 事件 -> 记录时间 -> 静默期结束 -> ImportFile
 * @rules 监听文件所在目录以兼容编辑器的重命名保存；文件无效时保留当前知识库
 * @dependencies github.com/fsnotify/fsnotify
 * @refs service/knowledge/knowledge_base.go, service/init.go
 */

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher 知识库文件监听器
type FileWatcher struct {
	kb       *KnowledgeBase
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu        sync.Mutex
	lastEvent time.Time
	imports   int
	lastErr   error

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// WatchFile 开始监听 path，返回的监听器需调用 Stop 释放
func (kb *KnowledgeBase) WatchFile(ctx context.Context, path string, debounce time.Duration) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监听失败: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("监听目录失败: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fw := &FileWatcher{
		kb:       kb,
		path:     abs,
		watcher:  w,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go fw.run(ctx)
	slog.Info("知识库文件监听已启动", "path", abs)
	return fw, nil
}

// Stop 停止监听
func (fw *FileWatcher) Stop() {
	fw.once.Do(func() {
		close(fw.stopCh)
		<-fw.doneCh
		if err := fw.watcher.Close(); err != nil {
			slog.Warn("关闭知识库文件监听失败", "error", err)
		}
	})
}

// Stats 已导入次数与最近一次错误
func (fw *FileWatcher) Stats() (imports int, lastErr error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.imports, fw.lastErr
}

func (fw *FileWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	ticker := time.NewTicker(fw.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			fw.mu.Lock()
			fw.lastEvent = time.Now()
			fw.mu.Unlock()
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("知识库文件监听异常", "error", err)
		case <-ticker.C:
			fw.mu.Lock()
			settled := !fw.lastEvent.IsZero() && time.Since(fw.lastEvent) >= fw.debounce
			if settled {
				fw.lastEvent = time.Time{}
			}
			fw.mu.Unlock()
			if settled {
				fw.importFile(ctx)
			}
		}
	}
}

func (fw *FileWatcher) importFile(ctx context.Context) {
	err := fw.kb.ImportFile(ctx, fw.path)

	fw.mu.Lock()
	fw.lastErr = err
	if err == nil {
		fw.imports++
	}
	fw.mu.Unlock()

	if err != nil {
		slog.Error("知识库文件导入失败，保留当前知识库", "path", fw.path, "error", err)
		return
	}
	slog.Info("已从文件导入知识库", "path", fw.path, "version", fw.kb.Snapshot().Version())
}
