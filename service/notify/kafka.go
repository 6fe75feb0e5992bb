package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig Kafka 发布配置
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Timeout time.Duration
}

// KafkaConfigFromEnv 从环境变量读取 Kafka 配置
func KafkaConfigFromEnv() KafkaConfig {
	var brokers []string
	for _, b := range strings.Split(getEnvWithDefault("KAFKA_BROKERS", "localhost:9092"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{
		Brokers: brokers,
		Topic:   getEnvWithDefault("KAFKA_TOPIC", "fishdisease.diagnoses"),
		Timeout: 10 * time.Second,
	}
}

// KafkaPublisher 通过 Kafka 发布事件
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(config KafkaConfig) (*KafkaPublisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(config.Brokers...),
			Topic:        config.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		timeout: config.Timeout,
	}, nil
}

// Publish 实现 Publisher，同一会话的事件使用会话ID作为key保证顺序
func (p *KafkaPublisher) Publish(ctx context.Context, event *DiagnosisEvent) error {
	payload, err := event.Payload()
	if err != nil {
		return fmt.Errorf("序列化诊断事件失败: %w", err)
	}

	key := event.SessionID
	if key == "" {
		key = event.ID
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(event.Source)},
			{Key: "knowledge_version", Value: []byte(event.KnowledgeVersion)},
		},
	})
	if err != nil {
		return fmt.Errorf("发送Kafka消息失败: %w", err)
	}
	return nil
}

// Driver 实现 Publisher
func (p *KafkaPublisher) Driver() string { return DriverKafka }

// Close 实现 Publisher
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
