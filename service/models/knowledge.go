/*
 * @module service/models/knowledge
 * @description 知识库模型：症状、鱼病及其诊断规则（规则签名）
 * @architecture 数据模型层
 * @documentReference DESIGN.md
 * @stateFlow 种子导入/知识库导入 -> 加载快照 -> 诊断匹配
 * @rules 编码唯一；每个鱼病至少一条规则；规则只能引用已存在的症状
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/knowledge
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Symptom 症状（鱼病可观察的征兆）
type Symptom struct {
	Code      string    `json:"code" gorm:"primaryKey;type:varchar(20)" example:"G01"`
	Name      string    `json:"name" gorm:"type:text;not null" example:"Ikan megap-megap di permukaan air"`
	SortOrder int       `json:"sort_order" gorm:"default:0;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Symptom) TableName() string {
	return "symptoms"
}

// Disease 鱼病
type Disease struct {
	Code      string        `json:"code" gorm:"primaryKey;type:varchar(20)" example:"P01"`
	Name      string        `json:"name" gorm:"type:varchar(200);not null" example:"Bintik Putih (Ichthyophthiriasis)"`
	Solution  string        `json:"solution" gorm:"type:text"`
	Treatment string        `json:"treatment" gorm:"type:text"`
	SortOrder int           `json:"sort_order" gorm:"default:0;index"`
	Rules     []DiseaseRule `json:"rules" gorm:"foreignKey:DiseaseCode;references:Code;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TableName 指定表名
func (Disease) TableName() string {
	return "diseases"
}

// DiseaseRule 诊断规则：鱼病 <- 症状，Weight 仅在加权评分策略下生效
type DiseaseRule struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DiseaseCode string  `json:"disease_code" gorm:"type:varchar(20);not null;uniqueIndex:idx_rule_disease_symptom"`
	SymptomCode string  `json:"symptom_code" gorm:"type:varchar(20);not null;uniqueIndex:idx_rule_disease_symptom;index"`
	Weight      float64 `json:"weight" gorm:"not null;default:1"`
	Position    int     `json:"position" gorm:"default:0"`
}

// TableName 指定表名
func (DiseaseRule) TableName() string {
	return "disease_rules"
}

// BeforeCreate GORM钩子，创建前生成UUID并补齐默认权重
func (r *DiseaseRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Weight <= 0 {
		r.Weight = 1
	}
	return nil
}
