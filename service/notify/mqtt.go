package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cast"
)

// MQTTConfig MQTT 发布配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
	Timeout  time.Duration
}

// MQTTConfigFromEnv 从环境变量读取 MQTT 配置
func MQTTConfigFromEnv() MQTTConfig {
	return MQTTConfig{
		Broker:   getEnvWithDefault("MQTT_BROKER", "tcp://localhost:1883"),
		ClientID: getEnvWithDefault("MQTT_CLIENT_ID", "fishdisease-service"),
		Username: getEnvWithDefault("MQTT_USERNAME", ""),
		Password: getEnvWithDefault("MQTT_PASSWORD", ""),
		Topic:    getEnvWithDefault("MQTT_TOPIC", "fishdisease/diagnoses"),
		QoS:      byte(cast.ToUint8(getEnvWithDefault("MQTT_QOS", "1"))),
		Timeout:  5 * time.Second,
	}
}

// MQTTPublisher 通过 MQTT 发布事件
type MQTTPublisher struct {
	client mqtt.Client
	config MQTTConfig
}

// NewMQTTPublisher 创建并连接 MQTT 发布器
func NewMQTTPublisher(config MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT连接断开", "broker", config.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.Timeout) {
		return nil, fmt.Errorf("MQTT连接超时: %s", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("MQTT连接失败: %w", err)
	}

	slog.Info("MQTT事件发布器已连接", "broker", config.Broker, "topic", config.Topic)
	return &MQTTPublisher{client: client, config: config}, nil
}

// Publish 实现 Publisher
func (p *MQTTPublisher) Publish(ctx context.Context, event *DiagnosisEvent) error {
	payload, err := event.Payload()
	if err != nil {
		return fmt.Errorf("序列化诊断事件失败: %w", err)
	}

	token := p.client.Publish(p.config.Topic, p.config.QoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT发布失败: %w", err)
	}
	return nil
}

// Driver 实现 Publisher
func (p *MQTTPublisher) Driver() string { return DriverMQTT }

// Close 实现 Publisher
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
