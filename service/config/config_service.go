/*
 * @module service/config/config_service
 * @description 配置服务，将字符串配置转换为匹配器与会话使用的类型化参数
 * @architecture 分层架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 服务调用 -> 配置管理器 -> 环境变量/数据库/默认值 -> 类型转换
 * @rules 单项配置无法解析时使用默认值并记录日志，不中断诊断
 * @dependencies fishdisease-service/service/models, gorm.io/gorm, github.com/spf13/cast
 * @refs service/config/config_manager.go, service/diagnosis/service.go, service/session/service.go
 */

package config

import (
	"context"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/service/models"
	"fishdisease-service/service/session"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// ConfigService 配置服务
type ConfigService struct {
	manager *ConfigManager
}

// NewConfigService 创建配置服务实例
func NewConfigService(db *gorm.DB) *ConfigService {
	return &ConfigService{manager: NewConfigManager(db)}
}

// Manager 底层配置管理器
func (s *ConfigService) Manager() *ConfigManager {
	return s.manager
}

// GetSystemConfig 获取单个配置项
func (s *ConfigService) GetSystemConfig(key string) (models.SystemConfigItem, error) {
	def, ok := Lookup(key)
	if !ok {
		return models.SystemConfigItem{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	for _, item := range s.manager.List() {
		if item.Key == key {
			return item, nil
		}
	}
	return models.SystemConfigItem{Key: key, Value: def.Default, Description: def.Description, ValueType: def.ValueType, Source: SourceDefault}, nil
}

// SetSystemConfig 设置配置
func (s *ConfigService) SetSystemConfig(ctx context.Context, key, value, description string) error {
	// script 权重需要先配置脚本
	if key == KeyMatcherWeighting && strings.EqualFold(strings.TrimSpace(value), string(diagnosis.WeightingScript)) && s.manager.Value(KeyMatcherScoreScript) == "" {
		return fmt.Errorf("%w: 请先设置 %s", ErrInvalidValue, KeyMatcherScoreScript)
	}
	return s.manager.Set(ctx, key, value, description)
}

// ResetSystemConfig 恢复默认值
func (s *ConfigService) ResetSystemConfig(ctx context.Context, key string) error {
	return s.manager.Reset(ctx, key)
}

// GetAllSystemConfigs 获取所有配置项
func (s *ConfigService) GetAllSystemConfigs() []models.SystemConfigItem {
	return s.manager.List()
}

// MatcherOptions 当前匹配参数，实现 diagnosis.OptionsProvider
func (s *ConfigService) MatcherOptions() diagnosis.Options {
	opts := diagnosis.DefaultOptions()

	if v, err := cast.ToFloat64E(s.manager.Value(KeyMatcherMinPercentage)); err == nil {
		opts.MinPercentage = v
	} else {
		s.warnInvalid(KeyMatcherMinPercentage, err)
	}
	if v, err := diagnosis.ParseTieBreak(s.manager.Value(KeyMatcherTieBreak)); err == nil {
		opts.TieBreak = v
	} else {
		s.warnInvalid(KeyMatcherTieBreak, err)
	}
	if v, err := diagnosis.ParseWeighting(s.manager.Value(KeyMatcherWeighting)); err == nil {
		opts.Weighting = v
	} else {
		s.warnInvalid(KeyMatcherWeighting, err)
	}
	if v, err := diagnosis.ParseEngine(s.manager.Value(KeyMatcherEngine)); err == nil {
		opts.Engine = v
	} else {
		s.warnInvalid(KeyMatcherEngine, err)
	}
	opts.ScoreScript = s.manager.Value(KeyMatcherScoreScript)
	return opts
}

// SessionSettings 当前会话参数，实现 session.SettingsProvider
func (s *ConfigService) SessionSettings() session.Settings {
	settings := session.DefaultSettings()

	if ms, err := cast.ToIntE(s.manager.Value(KeySessionDebounceMS)); err == nil && ms >= 0 {
		settings.Debounce = time.Duration(ms) * time.Millisecond
	} else {
		s.warnInvalid(KeySessionDebounceMS, err)
	}
	if minutes, err := cast.ToIntE(s.manager.Value(KeySessionTTLMinutes)); err == nil && minutes > 0 {
		settings.TTL = time.Duration(minutes) * time.Minute
	} else {
		s.warnInvalid(KeySessionTTLMinutes, err)
	}
	return settings
}

// ClearCache 清除配置缓存
func (s *ConfigService) ClearCache() {
	s.manager.ClearCache()
}

func (s *ConfigService) warnInvalid(key string, err error) {
	slog.Warn("配置值无效，使用默认值", "key", key, "error", err)
}
