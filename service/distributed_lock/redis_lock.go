/*
 * @module service/distributed_lock/redis_lock
 * @description 分布式锁：多实例共享 Redis 会话存储时串行化同一清单的修改
 * @architecture 工具层 - 提供分布式锁能力
 * @documentReference DESIGN.md
 * @stateFlow 获取锁 -> 执行 -> 释放锁/自动过期
 * @rules 使用Redis SET NX实现，释放时校验持有者；单实例部署使用进程内实现
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/session/service.go
 */

package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedLock 分布式锁接口
type DistributedLock interface {
	// TryLock 尝试获取锁
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock 释放锁
	Unlock(ctx context.Context, key string) error
}

// RedisLock Redis分布式锁实现
type RedisLock struct {
	client     *redis.Client
	prefix     string
	instanceID string // 实例ID，用于标识锁的持有者
}

// NewRedisLock 基于已有客户端创建Redis分布式锁
func NewRedisLock(client *redis.Client) *RedisLock {
	// 生成实例ID（使用主机名+进程ID）
	hostname, _ := os.Hostname()
	return &RedisLock{
		client:     client,
		prefix:     "fishdisease:lock:",
		instanceID: fmt.Sprintf("%s:%d", hostname, os.Getpid()),
	}
}

// TryLock 使用SET NX命令，只有当key不存在时才会设置成功
func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := r.client.SetNX(ctx, r.prefix+key, r.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}
	return result, nil
}

// Unlock 使用Lua脚本确保只有锁的持有者才能释放锁
func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	result, err := r.client.Eval(ctx, script, []string{r.prefix + key}, r.instanceID).Int64()
	if err != nil {
		return fmt.Errorf("释放锁失败: %w", err)
	}
	if result != 1 {
		slog.Warn("分布式锁: 锁不存在或已被其他实例持有", "key", key, "instance", r.instanceID)
	}
	return nil
}

// LocalLock 进程内锁，单实例部署使用
type LocalLock struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewLocalLock 创建进程内锁
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]time.Time)}
}

// TryLock 实现 DistributedLock，过期的锁视为已释放
func (l *LocalLock) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := l.held[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

// Unlock 实现 DistributedLock
func (l *LocalLock) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// Acquire 阻塞直到获得锁或 ctx 结束，返回释放函数
func Acquire(ctx context.Context, lock DistributedLock, key string, ttl time.Duration) (func(), error) {
	backoff := 2 * time.Millisecond
	for {
		locked, err := lock.TryLock(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if locked {
			return func() {
				if err := lock.Unlock(context.Background(), key); err != nil {
					slog.Warn("释放锁失败", "key", key, "error", err)
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("等待锁 %s 超时: %w", key, ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 50*time.Millisecond {
			backoff *= 2
		}
	}
}
