/*
 * @module service/config/config_manager
 * @description 配置管理器，负责配置加载、校验、持久化与变更通知
 * @architecture 分层架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 环境变量覆盖 > 数据库 system_configs > 默认值
 * @rules 只接受已定义的配置键；写入前必须校验
 * @dependencies fishdisease-service/service/models, gorm.io/gorm
 * @refs service/config/config_service.go
 */

package config

import (
	"context"
	"fishdisease-service/service/models"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// EnvPrefix 环境变量覆盖前缀，matcher.tie_break -> FISHDX_MATCHER_TIE_BREAK
	EnvPrefix = "FISHDX_"

	defaultEnvironment = "default"

	SourceEnv      = "env"
	SourceDatabase = "database"
	SourceDefault  = "default"
)

// ConfigChangeNotifier 配置变更通知器
type ConfigChangeNotifier interface {
	OnConfigChanged(key, oldValue, newValue string)
}

// ConfigChangeFunc 函数适配器
type ConfigChangeFunc func(key, oldValue, newValue string)

// OnConfigChanged 实现 ConfigChangeNotifier
func (f ConfigChangeFunc) OnConfigChanged(key, oldValue, newValue string) {
	f(key, oldValue, newValue)
}

// ConfigManager 配置管理器
type ConfigManager struct {
	db *gorm.DB

	mu     sync.RWMutex
	cache  map[string]models.SystemConfig
	loaded bool

	changeNotifiers []ConfigChangeNotifier
}

// NewConfigManager 创建配置管理器，db 为 nil 时配置只保存在内存
func NewConfigManager(db *gorm.DB) *ConfigManager {
	return &ConfigManager{
		db:    db,
		cache: make(map[string]models.SystemConfig),
	}
}

// EnvKey 配置键对应的环境变量名
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Load 从数据库加载配置
func (c *ConfigManager) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *ConfigManager) loadLocked(ctx context.Context) error {
	cache := make(map[string]models.SystemConfig)
	if c.db != nil {
		var configs []models.SystemConfig
		if err := c.db.WithContext(ctx).Where("environment = ?", defaultEnvironment).Find(&configs).Error; err != nil {
			return fmt.Errorf("查询配置失败: %w", err)
		}
		for _, cfg := range configs {
			if _, ok := definitions[cfg.Key]; !ok {
				slog.Warn("忽略未定义的配置项", "key", cfg.Key)
				continue
			}
			cache[cfg.Key] = cfg
		}
	} else {
		for k, v := range c.cache {
			cache[k] = v
		}
	}
	c.cache = cache
	c.loaded = true
	return nil
}

// Get 获取配置值及其来源
func (c *ConfigManager) Get(key string) (value string, source string, err error) {
	def, ok := definitions[key]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	if v, ok := os.LookupEnv(EnvKey(key)); ok {
		return v, SourceEnv, nil
	}

	c.ensureLoaded()

	c.mu.RLock()
	cfg, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cfg.Value, SourceDatabase, nil
	}
	return def.Default, SourceDefault, nil
}

// Value 获取配置值，忽略来源
func (c *ConfigManager) Value(key string) string {
	v, _, err := c.Get(key)
	if err != nil {
		return ""
	}
	return v
}

// Set 校验并保存配置
func (c *ConfigManager) Set(ctx context.Context, key, value, description string) error {
	def, ok := definitions[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	value = strings.TrimSpace(value)
	if err := def.Validate(value); err != nil {
		return err
	}
	if description == "" {
		description = def.Description
	}

	old := c.Value(key)

	c.mu.Lock()
	cfg := models.SystemConfig{Key: key, Value: value, Environment: defaultEnvironment, Description: description}
	if c.db != nil {
		err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}, {Name: "environment"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
		}).Create(&cfg).Error
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("保存配置失败: %w", err)
		}
	}
	c.cache[key] = cfg
	notifiers := append([]ConfigChangeNotifier(nil), c.changeNotifiers...)
	c.mu.Unlock()

	slog.Info("配置已更新", "key", key)
	c.notify(notifiers, key, old, c.Value(key))
	return nil
}

// Reset 删除已保存的值，恢复默认
func (c *ConfigManager) Reset(ctx context.Context, key string) error {
	if _, ok := definitions[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	old := c.Value(key)

	c.mu.Lock()
	if c.db != nil {
		err := c.db.WithContext(ctx).Where("key = ? AND environment = ?", key, defaultEnvironment).
			Delete(&models.SystemConfig{}).Error
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("删除配置失败: %w", err)
		}
	}
	delete(c.cache, key)
	notifiers := append([]ConfigChangeNotifier(nil), c.changeNotifiers...)
	c.mu.Unlock()

	c.notify(notifiers, key, old, c.Value(key))
	return nil
}

// List 列出所有配置项
func (c *ConfigManager) List() []models.SystemConfigItem {
	items := make([]models.SystemConfigItem, 0, len(definitions))
	for _, key := range Keys() {
		def := definitions[key]
		value, source, _ := c.Get(key)
		description := def.Description
		c.mu.RLock()
		if cfg, ok := c.cache[key]; ok && cfg.Description != "" && source == SourceDatabase {
			description = cfg.Description
		}
		c.mu.RUnlock()
		items = append(items, models.SystemConfigItem{
			Key:         key,
			Value:       value,
			Description: description,
			ValueType:   def.ValueType,
			Source:      source,
		})
	}
	return items
}

// AddChangeNotifier 添加变更通知器
func (c *ConfigManager) AddChangeNotifier(notifier ConfigChangeNotifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changeNotifiers = append(c.changeNotifiers, notifier)
}

// ClearCache 清除缓存，下次读取时重新从数据库加载
func (c *ConfigManager) ClearCache() {
	if c.db == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
}

func (c *ConfigManager) ensureLoaded() {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	if err := c.loadLocked(context.Background()); err != nil {
		// 数据库不可用时使用已有缓存，下次读取重试
		slog.Error("加载配置失败", "error", err)
	}
}

func (c *ConfigManager) notify(notifiers []ConfigChangeNotifier, key, oldValue, newValue string) {
	if oldValue == newValue {
		return
	}
	for _, n := range notifiers {
		n.OnConfigChanged(key, oldValue, newValue)
	}
}
