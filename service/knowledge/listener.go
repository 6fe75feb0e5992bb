/*
 * @module service/knowledge/listener
 * @description PostgreSQL LISTEN/NOTIFY 监听，多副本部署时同步知识库快照
 * @architecture 事件驱动 - 基础设施层
 * @documentReference DESIGN.md
 * @stateFlow pg_notify -> pq.Listener -> Reload
 * @rules 仅在 PostgreSQL 驱动下启用；通知内容为快照版本，版本一致时跳过重载
 * @dependencies github.com/lib/pq
 * @refs service/knowledge/knowledge_base.go
 */

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// NotifyChannel 知识库变更通知通道
const NotifyChannel = "knowledge_changed"

// Listen 监听知识库变更通知，ctx 取消后退出
func (kb *KnowledgeBase) Listen(ctx context.Context, dsn string) error {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("知识库通知监听连接异常", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return fmt.Errorf("监听知识库通知失败: %w", err)
	}
	slog.Info("知识库变更监听已启动", "channel", NotifyChannel)

	go func() {
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// 重连后会收到 nil 通知，此时无法确定是否错过变更，直接重载
				if n != nil && n.Extra == kb.Snapshot().Version() {
					continue
				}
				if err := kb.Reload(ctx); err != nil {
					slog.Error("收到通知后重载知识库失败", "error", err)
				}
			case <-time.After(90 * time.Second):
				go func() {
					if err := listener.Ping(); err != nil {
						slog.Warn("知识库通知监听 ping 失败", "error", err)
					}
				}()
			}
		}
	}()
	return nil
}
