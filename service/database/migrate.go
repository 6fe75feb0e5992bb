/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新知识库与配置表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference DESIGN.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies fishdisease-service/service/models, gorm.io/gorm
 * @refs service/knowledge/seed.go
 */

package database

import (
	"fishdisease-service/service/models"
	"log/slog"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	slog.Info("开始数据库迁移")

	// 知识库相关表
	err := db.AutoMigrate(
		&models.Symptom{},
		&models.Disease{},
		&models.DiseaseRule{},
	)
	if err != nil {
		return err
	}

	// 系统配置
	if err := db.AutoMigrate(&models.SystemConfig{}); err != nil {
		return err
	}

	slog.Info("数据库迁移完成")
	return nil
}
