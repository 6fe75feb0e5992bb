/*
 * @module service/knowledge/knowledge_base
 * @description 知识库服务：种子导入、快照加载/重载、整体替换与导出
 * @architecture 分层架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 数据库 -> Document -> Snapshot(原子替换) -> 诊断服务读取
 * @rules 快照加载失败时保留旧快照；替换操作在事务内完成
 * @dependencies gorm.io/gorm, golang.org/x/sync/singleflight, fishdisease-service/service/models
 * @refs service/knowledge/listener.go, service/diagnosis/service.go
 */

package knowledge

import (
	"context"
	_ "embed"
	"fishdisease-service/service/database"
	"fishdisease-service/service/metrics"
	"fishdisease-service/service/models"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

//go:embed seed/knowledge.yaml
var seedYAML []byte

// SeedDocument 返回内置的种子知识库文档
func SeedDocument() (*Document, error) {
	return ParseDocument(seedYAML)
}

// KnowledgeBase 知识库服务
type KnowledgeBase struct {
	db       *gorm.DB
	current  atomic.Pointer[Snapshot]
	mu       sync.Mutex
	onReload []func(*Snapshot)
	reloads  singleflight.Group
}

// NewKnowledgeBase 创建基于数据库的知识库服务
func NewKnowledgeBase(db *gorm.DB) *KnowledgeBase {
	kb := &KnowledgeBase{db: db}
	kb.current.Store(emptySnapshot())
	return kb
}

// NewStaticKnowledgeBase 创建不依赖数据库的知识库（离线命令行、测试）
func NewStaticKnowledgeBase(snap *Snapshot) *KnowledgeBase {
	kb := &KnowledgeBase{}
	if snap == nil {
		snap = emptySnapshot()
	}
	kb.current.Store(snap)
	return kb
}

// Snapshot 当前快照，永不为nil
func (kb *KnowledgeBase) Snapshot() *Snapshot {
	return kb.current.Load()
}

// OnReload 注册快照更新回调
func (kb *KnowledgeBase) OnReload(fn func(*Snapshot)) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.onReload = append(kb.onReload, fn)
}

// Seed 知识库为空时导入内置种子数据，返回是否执行了导入
func (kb *KnowledgeBase) Seed(ctx context.Context) (bool, error) {
	if kb.db == nil {
		return false, nil
	}

	var count int64
	if err := kb.db.WithContext(ctx).Model(&models.Symptom{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("统计症状数量失败: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	doc, err := SeedDocument()
	if err != nil {
		return false, err
	}
	if err := doc.Validate(); err != nil {
		return false, err
	}

	err = kb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return writeDocument(tx, doc)
	})
	if err != nil {
		return false, fmt.Errorf("导入种子知识库失败: %w", err)
	}

	slog.Info("种子知识库导入完成", "symptoms", len(doc.Symptoms), "diseases", len(doc.Diseases))
	return true, nil
}

// Load 从数据库加载快照
func (kb *KnowledgeBase) Load(ctx context.Context) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.loadLocked(ctx)
}

// Reload 重新加载快照，失败时保留旧快照；并发调用合并为一次数据库读取
func (kb *KnowledgeBase) Reload(ctx context.Context) error {
	_, err, _ := kb.reloads.Do("reload", func() (interface{}, error) {
		return nil, kb.Load(ctx)
	})
	return err
}

// ImportFile 读取YAML文件并整体替换知识库
func (kb *KnowledgeBase) ImportFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取知识库文件失败: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	return kb.Replace(ctx, doc)
}

func (kb *KnowledgeBase) loadLocked(ctx context.Context) error {
	if kb.db == nil {
		return nil
	}

	doc, err := readDocument(kb.db.WithContext(ctx))
	if err != nil {
		metrics.KnowledgeReloads.WithLabelValues("failure").Inc()
		return err
	}
	snap, err := BuildSnapshot(doc)
	if err != nil {
		metrics.KnowledgeReloads.WithLabelValues("failure").Inc()
		return fmt.Errorf("数据库中的知识库无效: %w", err)
	}

	metrics.KnowledgeReloads.WithLabelValues("success").Inc()
	kb.swapLocked(snap)
	return nil
}

// swapLocked 替换当前快照，内容变化时触发回调
func (kb *KnowledgeBase) swapLocked(snap *Snapshot) {
	old := kb.current.Swap(snap)
	metrics.KnowledgeDiseases.Set(float64(len(snap.Diseases())))

	if old == nil || old.Version() != snap.Version() {
		slog.Info("知识库快照已更新",
			"version", snap.Version(),
			"symptoms", len(snap.Symptoms()),
			"diseases", len(snap.Diseases()))
		for _, fn := range kb.onReload {
			fn(snap)
		}
	}
}

// Replace 用新文档整体替换知识库
func (kb *KnowledgeBase) Replace(ctx context.Context, doc *Document) error {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if kb.db == nil {
		snap, err := BuildSnapshot(doc)
		if err != nil {
			return err
		}
		kb.swapLocked(snap)
		return nil
	}

	err := kb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.DiseaseRule{}).Error; err != nil {
			return fmt.Errorf("清空规则失败: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&models.Disease{}).Error; err != nil {
			return fmt.Errorf("清空鱼病失败: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&models.Symptom{}).Error; err != nil {
			return fmt.Errorf("清空症状失败: %w", err)
		}
		return writeDocument(tx, doc)
	})
	if err != nil {
		return fmt.Errorf("替换知识库失败: %w", err)
	}

	if err := kb.loadLocked(ctx); err != nil {
		return err
	}

	if database.IsPostgres(kb.db) {
		version := kb.current.Load().Version()
		if err := kb.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", NotifyChannel, version).Error; err != nil {
			slog.Warn("发送知识库变更通知失败", "error", err)
		}
	}
	return nil
}

// Export 导出当前快照
func (kb *KnowledgeBase) Export() *Document {
	return kb.Snapshot().Document()
}

// writeDocument 将文档写入数据库（调用方负责事务与清空）
func writeDocument(tx *gorm.DB, doc *Document) error {
	if len(doc.Symptoms) > 0 {
		symptoms := make([]models.Symptom, 0, len(doc.Symptoms))
		for i, s := range doc.Symptoms {
			symptoms = append(symptoms, models.Symptom{Code: s.Code, Name: s.Name, SortOrder: i})
		}
		if err := tx.Create(&symptoms).Error; err != nil {
			return fmt.Errorf("写入症状失败: %w", err)
		}
	}

	for i, d := range doc.Diseases {
		disease := models.Disease{
			Code:      d.Code,
			Name:      d.Name,
			Solution:  d.Solution,
			Treatment: d.Treatment,
			SortOrder: i,
		}
		for j, r := range d.Rules {
			disease.Rules = append(disease.Rules, models.DiseaseRule{
				SymptomCode: r.Symptom,
				Weight:      r.Weight,
				Position:    j,
			})
		}
		if err := tx.Create(&disease).Error; err != nil {
			return fmt.Errorf("写入鱼病 %s 失败: %w", d.Code, err)
		}
	}
	return nil
}

// readDocument 从数据库读取文档
func readDocument(db *gorm.DB) (*Document, error) {
	var symptoms []models.Symptom
	if err := db.Order("sort_order, code").Find(&symptoms).Error; err != nil {
		return nil, fmt.Errorf("查询症状失败: %w", err)
	}

	var diseases []models.Disease
	err := db.Preload("Rules", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position, symptom_code")
	}).Order("sort_order, code").Find(&diseases).Error
	if err != nil {
		return nil, fmt.Errorf("查询鱼病失败: %w", err)
	}

	doc := &Document{Version: 1}
	for _, s := range symptoms {
		doc.Symptoms = append(doc.Symptoms, SymptomEntry{Code: s.Code, Name: s.Name})
	}
	for _, d := range diseases {
		entry := DiseaseEntry{
			Code:      d.Code,
			Name:      d.Name,
			Solution:  d.Solution,
			Treatment: d.Treatment,
		}
		for _, r := range d.Rules {
			entry.Rules = append(entry.Rules, RuleEntry{Symptom: r.SymptomCode, Weight: r.Weight})
		}
		doc.Diseases = append(doc.Diseases, entry)
	}
	return doc, nil
}
