package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "fishdisease:checklist:"

// RedisStore Redis 存储，多实例共享清单，过期由 Redis TTL 负责
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Get 实现 Store
func (r *RedisStore) Get(ctx context.Context, id string) (*Checklist, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取症状清单失败: %w", err)
	}

	var c Checklist
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析症状清单失败: %w", err)
	}
	return &c, nil
}

// Save 实现 Store
func (r *RedisStore) Save(ctx context.Context, c *Checklist) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("序列化症状清单失败: %w", err)
	}

	var ttl time.Duration
	if !c.ExpiresAt.IsZero() {
		ttl = c.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.client.Del(ctx, redisKey(c.ID)).Err()
		}
	}
	if err := r.client.Set(ctx, redisKey(c.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("保存症状清单失败: %w", err)
	}
	return nil
}

// Delete 实现 Store
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("删除症状清单失败: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Sweep 实现 Store，过期由 Redis TTL 完成；已过期清单由 Service.Sweep 通过 Get 发现
func (r *RedisStore) Sweep(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

// Close 实现 Store
func (r *RedisStore) Close() error {
	return r.client.Close()
}
