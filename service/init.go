/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、知识库加载、会话存储与定时任务的初始化
 * @architecture 分层架构 - 服务层
 * @documentReference DESIGN.md
 * @stateFlow 连接数据库 -> 迁移 -> 加载配置 -> 种子/加载知识库 -> 组装服务 -> 启动定时任务
 * @rules 确保所有依赖服务正常启动后才提供API服务；外部消息中间件不可用时降级为不发布
 * @dependencies gorm.io/gorm, github.com/go-redis/redis/v8, github.com/spf13/cast
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fishdisease-service/service/config"
	"fishdisease-service/service/database"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/service/distributed_lock"
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/notify"
	"fishdisease-service/service/rate_limiter"
	"fishdisease-service/service/scheduler"
	"fishdisease-service/service/session"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

var (
	DB                     *gorm.DB
	GlobalConfigService    *config.ConfigService
	GlobalKnowledgeBase    *knowledge.KnowledgeBase
	GlobalPublisher        notify.Publisher
	GlobalDiagnosisService *diagnosis.Service
	GlobalSessionService   *session.Service
	GlobalSchedulerService *scheduler.SchedulerService
	GlobalRateLimiter      rate_limiter.RateLimiter

	sessionStore session.Store
	stopListen   context.CancelFunc
	fileWatcher  *knowledge.FileWatcher
)

// Init 根据环境变量初始化全部服务
func Init(ctx context.Context) error {
	cfg := database.ConfigFromEnv()
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	slog.Info("数据库连接成功", "driver", cfg.Driver)

	listenDSN := ""
	if cfg.Driver == database.DriverPostgres {
		listenDSN = cfg.DSN
	}
	return InitWithDB(ctx, db, listenDSN)
}

// InitWithDB 使用已有数据库连接初始化服务，listenDSN 非空时监听知识库变更通知
func InitWithDB(ctx context.Context, db *gorm.DB, listenDSN string) error {
	DB = db
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	GlobalConfigService = config.NewConfigService(db)
	if err := GlobalConfigService.Manager().Load(ctx); err != nil {
		return err
	}
	GlobalConfigService.Manager().AddChangeNotifier(config.ConfigChangeFunc(func(key, oldValue, newValue string) {
		slog.Info("配置变更已生效", "key", key, "old", oldValue, "new", newValue)
	}))

	if err := initKnowledgeBase(ctx, db, listenDSN); err != nil {
		return err
	}

	GlobalPublisher = initPublisher()
	GlobalDiagnosisService = diagnosis.NewService(GlobalKnowledgeBase, GlobalConfigService, GlobalPublisher)

	store, lock, redisClient, err := initSessionStore(ctx)
	if err != nil {
		return err
	}
	sessionStore = store
	if redisClient != nil {
		GlobalRateLimiter = rate_limiter.NewRedisRateLimiter(redisClient)
	} else {
		GlobalRateLimiter = rate_limiter.NewMemoryRateLimiter()
	}
	GlobalSessionService = session.NewService(store, GlobalDiagnosisService, GlobalConfigService, lock)

	GlobalSchedulerService = scheduler.NewSchedulerService()
	if err := registerJobs(GlobalSchedulerService); err != nil {
		return err
	}
	GlobalSchedulerService.Start()
	return nil
}

func initKnowledgeBase(ctx context.Context, db *gorm.DB, listenDSN string) error {
	GlobalKnowledgeBase = knowledge.NewKnowledgeBase(db)

	seeded, err := GlobalKnowledgeBase.Seed(ctx)
	if err != nil {
		return err
	}
	if seeded {
		slog.Info("已导入内置知识库")
	}
	if err := GlobalKnowledgeBase.Load(ctx); err != nil {
		return fmt.Errorf("加载知识库失败: %w", err)
	}

	// KNOWLEDGE_FILE 指向的YAML文件在启动时导入，之后保存即生效
	if path := os.Getenv("KNOWLEDGE_FILE"); path != "" {
		if err := GlobalKnowledgeBase.ImportFile(ctx, path); err != nil {
			return fmt.Errorf("导入知识库文件失败: %w", err)
		}
		watcher, err := GlobalKnowledgeBase.WatchFile(context.Background(), path, 500*time.Millisecond)
		if err != nil {
			slog.Warn("知识库文件监听启动失败", "path", path, "error", err)
		} else {
			fileWatcher = watcher
		}
	}

	if listenDSN != "" {
		listenCtx, cancel := context.WithCancel(context.Background())
		if err := GlobalKnowledgeBase.Listen(listenCtx, listenDSN); err != nil {
			cancel()
			// 单实例部署时不影响使用
			slog.Warn("知识库变更监听启动失败", "error", err)
		} else {
			stopListen = cancel
		}
	}
	return nil
}

func initPublisher() notify.Publisher {
	publisher, err := notify.NewPublisherFromEnv()
	if err != nil {
		slog.Error("诊断事件发布器初始化失败，不发布事件", "error", err)
		return notify.NoopPublisher{}
	}
	if publisher.Driver() == notify.DriverNone {
		return publisher
	}
	return notify.NewAsyncPublisher(publisher, 256)
}

// initSessionStore SESSION_STORE=redis 时会话、锁与限流计数共用同一个Redis客户端
func initSessionStore(ctx context.Context) (session.Store, distributed_lock.DistributedLock, *redis.Client, error) {
	switch strings.ToLower(os.Getenv("SESSION_STORE")) {
	case "redis":
		client, err := database.OpenRedis(ctx, database.RedisConfigFromEnv())
		if err != nil {
			return nil, nil, nil, err
		}
		return session.NewRedisStore(client), distributed_lock.NewRedisLock(client), client, nil
	case "", "memory":
		return session.NewMemoryStore(), distributed_lock.NewLocalLock(), nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("不支持的会话存储: %s", os.Getenv("SESSION_STORE"))
	}
}

// RateLimitRule 诊断类接口的限流规则，RATE_LIMIT_PER_MINUTE 未设置或为0时不限流
func RateLimitRule() rate_limiter.RateLimitRule {
	return rate_limiter.RateLimitRule{
		Name:        "diagnosis",
		Window:      time.Minute,
		MaxRequests: cast.ToInt(os.Getenv("RATE_LIMIT_PER_MINUTE")),
	}
}

func registerJobs(s *scheduler.SchedulerService) error {
	err := s.AddJob(scheduler.Job{
		Name: "checklist-sweep",
		Spec: "0 * * * * *",
		Run: func(ctx context.Context) error {
			_, err := GlobalSessionService.Sweep(ctx)
			return err
		},
	})
	if err != nil {
		return err
	}

	// 其他实例修改的配置定期生效
	err = s.AddJob(scheduler.Job{
		Name: "config-refresh",
		Spec: "*/30 * * * * *",
		Run: func(ctx context.Context) error {
			GlobalConfigService.ClearCache()
			return nil
		},
	})
	if err != nil {
		return err
	}

	if limiter, ok := GlobalRateLimiter.(*rate_limiter.MemoryRateLimiter); ok {
		err = s.AddJob(scheduler.Job{
			Name: "rate-limit-prune",
			Spec: "30 */5 * * * *",
			Run: func(ctx context.Context) error {
				limiter.Prune(time.Minute)
				return nil
			},
		})
		if err != nil {
			return err
		}
	}

	if spec := os.Getenv("KNOWLEDGE_REFRESH_CRON"); spec != "" {
		return s.AddJob(scheduler.Job{
			Name: "knowledge-refresh",
			Spec: spec,
			Run:  GlobalKnowledgeBase.Reload,
		})
	}
	return nil
}

// Shutdown 释放资源
func Shutdown() {
	if GlobalSchedulerService != nil {
		GlobalSchedulerService.Stop()
	}
	if stopListen != nil {
		stopListen()
	}
	if fileWatcher != nil {
		fileWatcher.Stop()
	}
	if GlobalSessionService != nil {
		GlobalSessionService.Close()
	}
	if sessionStore != nil {
		if err := sessionStore.Close(); err != nil {
			slog.Warn("关闭会话存储失败", "error", err)
		}
	}
	if GlobalPublisher != nil {
		if err := GlobalPublisher.Close(); err != nil {
			slog.Warn("关闭事件发布器失败", "error", err)
		}
	}
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	slog.Info("服务资源已释放")
}
