/*
 * @module service/notify/publisher
 * @description 诊断事件发布：每次诊断完成后将候选结果推送到消息中间件，供下游统计与告警使用
 * @architecture 发布订阅模式 - 基础设施层
 * @documentReference DESIGN.md
 * @stateFlow 诊断服务 -> AsyncPublisher(缓冲队列) -> MQTT / Kafka
 * @rules 发布失败只记录日志与指标，不影响诊断结果；NOTIFY_DRIVER 为空时不发布
 * @dependencies github.com/eclipse/paho.mqtt.golang, github.com/segmentio/kafka-go
 * @refs service/diagnosis/service.go, service/init.go
 */

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DriverNone 不发布
	DriverNone = "none"
	// DriverMQTT MQTT
	DriverMQTT = "mqtt"
	// DriverKafka Kafka
	DriverKafka = "kafka"
)

// Candidate 事件中的候选鱼病摘要
type Candidate struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// DiagnosisEvent 诊断完成事件
type DiagnosisEvent struct {
	ID               string      `json:"id"`
	Source           string      `json:"source"`
	SessionID        string      `json:"session_id,omitempty"`
	Symptoms         []string    `json:"symptoms"`
	Candidates       []Candidate `json:"candidates"`
	KnowledgeVersion string      `json:"knowledge_version"`
	CreatedAt        time.Time   `json:"created_at"`
}

// NewDiagnosisEvent 创建事件
func NewDiagnosisEvent(source, sessionID string, symptoms []string, candidates []Candidate, version string) *DiagnosisEvent {
	return &DiagnosisEvent{
		ID:               uuid.New().String(),
		Source:           source,
		SessionID:        sessionID,
		Symptoms:         symptoms,
		Candidates:       candidates,
		KnowledgeVersion: version,
		CreatedAt:        time.Now(),
	}
}

// Payload 序列化事件
func (e *DiagnosisEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 事件发布器
type Publisher interface {
	Publish(ctx context.Context, event *DiagnosisEvent) error
	Driver() string
	Close() error
}

// NoopPublisher 丢弃所有事件
type NoopPublisher struct{}

// Publish 实现 Publisher
func (NoopPublisher) Publish(context.Context, *DiagnosisEvent) error { return nil }

// Driver 实现 Publisher
func (NoopPublisher) Driver() string { return DriverNone }

// Close 实现 Publisher
func (NoopPublisher) Close() error { return nil }

// NewPublisherFromEnv 按 NOTIFY_DRIVER 创建发布器
func NewPublisherFromEnv() (Publisher, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFY_DRIVER")))
	switch driver {
	case "", DriverNone:
		return NoopPublisher{}, nil
	case DriverMQTT:
		return NewMQTTPublisher(MQTTConfigFromEnv())
	case DriverKafka:
		return NewKafkaPublisher(KafkaConfigFromEnv())
	}
	return nil, fmt.Errorf("未知的事件发布驱动: %s", driver)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
