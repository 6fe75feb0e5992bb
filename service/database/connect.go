/*
 * @module service/database/connect
 * @description 数据库连接模块，根据环境变量选择 PostgreSQL 或 SQLite
 * @architecture 数据访问层
 * @documentReference DESIGN.md
 * @stateFlow 读取环境变量 -> 构建DSN -> 打开连接
 * @rules 优先使用 DATABASE_URL；未指定驱动时使用本地 SQLite 文件
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs service/init.go
 */

package database

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ConnectionConfig 数据库连接配置
type ConnectionConfig struct {
	Driver   string
	DSN      string
	LogLevel logger.LogLevel
}

// ConfigFromEnv 从环境变量读取数据库连接配置
func ConfigFromEnv() ConnectionConfig {
	cfg := ConnectionConfig{
		Driver:   getEnvWithDefault("DB_DRIVER", DriverSQLite),
		LogLevel: logger.Warn,
	}

	switch cfg.Driver {
	case DriverPostgres:
		// 优先使用DATABASE_URL环境变量
		if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
			cfg.DSN = databaseURL
			break
		}
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		cfg.DSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Jakarta",
			host, port, user, password, dbname, sslmode, schema)
	default:
		cfg.DSN = getEnvWithDefault("SQLITE_PATH", "fishdisease.db")
	}

	return cfg
}

// Open 打开数据库连接
func Open(cfg ConnectionConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite, "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return db, nil
}

// IsPostgres 判断当前连接是否为 PostgreSQL
func IsPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == DriverPostgres
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
