package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cast"
)

// RedisConfigFromEnv 从环境变量读取 Redis 连接参数
func RedisConfigFromEnv() *redis.Options {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     getEnvWithDefault("REDIS_PASSWORD", ""),
		DB:           cast.ToInt(getEnvWithDefault("REDIS_DB", "0")),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// OpenRedis 创建 Redis 客户端并检查连通性
func OpenRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	slog.Info("Redis连接成功", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}
