/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 固定窗口限流，保护诊断与症状清单创建接口；多实例部署时计数保存在Redis
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference DESIGN.md
 * @stateFlow 检查限流规则 -> 窗口计数 -> 判断是否超限
 * @rules 超限请求不计数；Redis 计数使用 Lua 脚本保证原子性
 * @dependencies github.com/go-redis/redis/v8
 * @refs api/middleware/rate_limit.go, service/init.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitResult 限流检查结果
type RateLimitResult struct {
	Allowed   bool  `json:"allowed"`   // 是否允许请求
	Limit     int   `json:"limit"`     // 限制数量
	Remaining int   `json:"remaining"` // 剩余数量
	ResetAt   int64 `json:"reset_at"`  // 重置时间（Unix时间戳）
}

// RateLimitRule 限流规则
type RateLimitRule struct {
	Name        string        // 规则名称，用于区分不同接口组
	Window      time.Duration // 时间窗口
	MaxRequests int           // 窗口内最大请求数
}

// Enabled MaxRequests<=0 表示不限流
func (r RateLimitRule) Enabled() bool {
	return r.MaxRequests > 0 && r.Window > 0
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, rule RateLimitRule, clientID string) (*RateLimitResult, error)
}

// windowStart 当前窗口的起止时间
func windowStart(now time.Time, window time.Duration) (int64, time.Time) {
	idx := now.UnixNano() / int64(window)
	return idx, time.Unix(0, (idx+1)*int64(window))
}

// RedisRateLimiter Redis限流器
type RedisRateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRateLimiter 基于已有客户端创建Redis限流器
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, now: time.Now}
}

// 超限时不增加计数
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	if current >= max_requests then
		return {0, current}
	end

	local new_count = redis.call('INCR', key)
	if new_count == 1 then
		redis.call('PEXPIRE', key, window_ms)
	end
	return {1, new_count}
`)

// Allow 实现 RateLimiter
func (r *RedisRateLimiter) Allow(ctx context.Context, rule RateLimitRule, clientID string) (*RateLimitResult, error) {
	idx, resetAt := windowStart(r.now(), rule.Window)
	key := fmt.Sprintf("fishdisease:rate_limit:%s:%s:%d", rule.Name, clientID, idx)

	res, err := allowScript.Run(ctx, r.client, []string{key}, rule.MaxRequests, rule.Window.Milliseconds()).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}
	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return nil, fmt.Errorf("限流检查返回值异常: %v", res)
	}
	allowed, _ := values[0].(int64)
	count, _ := values[1].(int64)

	return newResult(allowed == 1, rule.MaxRequests, int(count), resetAt), nil
}

func newResult(allowed bool, limit, count int, resetAt time.Time) *RateLimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt.Unix(),
	}
}

// MemoryRateLimiter 进程内限流器，单实例部署使用
type MemoryRateLimiter struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

type windowCounter struct {
	window int64
	count  int
}

// NewMemoryRateLimiter 创建进程内限流器
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{counters: make(map[string]*windowCounter), now: time.Now}
}

// Allow 实现 RateLimiter
func (m *MemoryRateLimiter) Allow(_ context.Context, rule RateLimitRule, clientID string) (*RateLimitResult, error) {
	idx, resetAt := windowStart(m.now(), rule.Window)
	key := rule.Name + ":" + clientID

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok || c.window != idx {
		c = &windowCounter{window: idx}
		m.counters[key] = c
	}
	if c.count >= rule.MaxRequests {
		return newResult(false, rule.MaxRequests, c.count, resetAt), nil
	}
	c.count++
	return newResult(true, rule.MaxRequests, c.count, resetAt), nil
}

// Prune 删除已过期窗口的计数
func (m *MemoryRateLimiter) Prune(window time.Duration) int {
	idx, _ := windowStart(m.now(), window)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, c := range m.counters {
		if c.window < idx {
			delete(m.counters, key)
			removed++
		}
	}
	return removed
}
