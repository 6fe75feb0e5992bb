/*
 * @module service/session/checklist
 * @description 症状清单会话：用户逐个勾选症状，停止操作一段时间后自动重新诊断
 * @architecture 领域模型
 * @documentReference DESIGN.md
 * @stateFlow 勾选/取消 -> Version+1 -> Loading -> 防抖到期 -> Results
 * @rules 每次修改选择都会递增 Version；只有与当前 Version 一致的计算结果才会被采用
 * @dependencies fishdisease-service/service/diagnosis
 * @refs service/session/service.go
 */

package session

import (
	"errors"
	"fishdisease-service/service/diagnosis"
	"time"
)

var (
	// ErrNotFound 清单不存在或已过期
	ErrNotFound = errors.New("症状清单不存在或已过期")
	// ErrUnknownSymptom 知识库中不存在该症状
	ErrUnknownSymptom = errors.New("未知的症状编码")
	// ErrClosed 服务已关闭
	ErrClosed = errors.New("症状清单服务已关闭")
)

// Checklist 症状清单
type Checklist struct {
	ID       string             `json:"id"`
	Selected []string           `json:"selected"`
	Results  []diagnosis.Result `json:"results"`
	Message  string             `json:"message,omitempty"`
	// Loading 选择已变化、结果尚未重新计算
	Loading bool `json:"loading"`
	// Version 每次修改选择递增
	Version uint64 `json:"version"`
	// ResultVersion 当前结果对应的 Version
	ResultVersion    uint64    `json:"result_version"`
	KnowledgeVersion string    `json:"knowledge_version,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// IsSelected 症状是否已勾选
func (c *Checklist) IsSelected(code string) bool {
	for _, s := range c.Selected {
		if s == code {
			return true
		}
	}
	return false
}

// Clone 深拷贝
func (c *Checklist) Clone() *Checklist {
	if c == nil {
		return nil
	}
	out := *c
	out.Selected = append([]string(nil), c.Selected...)
	if c.Results != nil {
		out.Results = make([]diagnosis.Result, len(c.Results))
		for i, r := range c.Results {
			r.MatchedSymptoms = append([]string(nil), r.MatchedSymptoms...)
			out.Results[i] = r
		}
	}
	return &out
}

// toggle 勾选或取消，返回操作后是否为勾选状态
func (c *Checklist) toggle(code string) bool {
	for i, s := range c.Selected {
		if s == code {
			c.Selected = append(c.Selected[:i:i], c.Selected[i+1:]...)
			return false
		}
	}
	c.Selected = append(c.Selected, code)
	return true
}

// clearResults 清空结果并提示选择症状
func (c *Checklist) clearResults() {
	c.Results = []diagnosis.Result{}
	c.Loading = false
	c.Message = diagnosis.MessageSelectSymptoms
	c.ResultVersion = c.Version
}

// EventType 清单事件类型
type EventType string

const (
	// EventLoading 选择已变化，等待重新计算
	EventLoading EventType = "loading"
	// EventResult 计算完成
	EventResult EventType = "result"
	// EventReset 清单被重置
	EventReset EventType = "reset"
	// EventDeleted 清单被删除或过期
	EventDeleted EventType = "deleted"
)

// Event 清单变化事件，用于 SSE 推送
type Event struct {
	Type      EventType  `json:"type"`
	Checklist *Checklist `json:"checklist,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
