/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference DESIGN.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify
 * @refs service/models, service/database
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fishdisease-service/service/database"
	"fishdisease-service/service/models"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建内存数据库并迁移所有模型
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 每个连接都是独立的内存库，只保留一个连接
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get sql.DB: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	return &TestDB{DB: db}
}

// CleanDB 清空所有表
func (tdb *TestDB) CleanDB() {
	for _, table := range []string{"disease_rules", "diseases", "symptoms", "system_configs"} {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库
func (tdb *TestDB) Close() {
	if sqlDB, err := tdb.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// CreateSymptom 创建症状
func (f *TestDataFactory) CreateSymptom(code, name string) *models.Symptom {
	var count int64
	f.DB.Model(&models.Symptom{}).Count(&count)

	symptom := &models.Symptom{Code: code, Name: name, SortOrder: int(count)}
	if err := f.DB.Create(symptom).Error; err != nil {
		panic(fmt.Sprintf("failed to create test symptom: %v", err))
	}
	return symptom
}

// DiseaseOption 鱼病选项函数类型
type DiseaseOption func(*models.Disease)

// WithWeight 设置某条规则的权重
func WithWeight(symptomCode string, weight float64) DiseaseOption {
	return func(d *models.Disease) {
		for i := range d.Rules {
			if d.Rules[i].SymptomCode == symptomCode {
				d.Rules[i].Weight = weight
			}
		}
	}
}

// CreateDisease 创建鱼病及其症状规则
func (f *TestDataFactory) CreateDisease(code, name string, symptomCodes []string, opts ...DiseaseOption) *models.Disease {
	var count int64
	f.DB.Model(&models.Disease{}).Count(&count)

	disease := &models.Disease{
		Code:      code,
		Name:      name,
		Solution:  "solusi " + name,
		Treatment: "pengobatan " + name,
		SortOrder: int(count),
	}
	for i, s := range symptomCodes {
		disease.Rules = append(disease.Rules, models.DiseaseRule{SymptomCode: s, Weight: 1, Position: i})
	}
	for _, opt := range opts {
		opt(disease)
	}

	if err := f.DB.Create(disease).Error; err != nil {
		panic(fmt.Sprintf("failed to create test disease: %v", err))
	}
	return disease
}

// CreateSystemConfig 创建配置记录
func (f *TestDataFactory) CreateSystemConfig(key, value string) *models.SystemConfig {
	cfg := &models.SystemConfig{Key: key, Value: value}
	if err := f.DB.Create(cfg).Error; err != nil {
		panic(fmt.Sprintf("failed to create test config: %v", err))
	}
	return cfg
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do 执行请求并返回响应
func (h *HTTPTestHelper) Do(t *testing.T, handler http.Handler, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, err := h.CreateJSONRequest(method, url, body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeResponse 解析统一响应结构，data 解析到 out
func (h *HTTPTestHelper) DecodeResponse(t *testing.T, w *httptest.ResponseRecorder, out interface{}) (status int, msg string) {
	t.Helper()
	var envelope struct {
		Status int             `json:"status"`
		Msg    string          `json:"msg"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	if out != nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Status, envelope.Msg
}

// AssertJSONResponse 断言状态码与 JSON 响应体
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		var expectedParsed interface{}
		json.Unmarshal(expectedJSON, &expectedParsed)
		assert.Equal(t, expectedParsed, actualBody)
	}
}
