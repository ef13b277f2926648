package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Publisher MQTT 发布接口（*mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTChannel 通过 MQTT 发布遥测和报警
// 遥测主题 {prefix}/{device}/telemetry，报警主题 {prefix}/{device}/alerts
type MQTTChannel struct {
	publisher      Publisher
	telemetryTopic string
	alertTopic     string
	qos            byte
	deviceID       string
	logger         *zap.Logger
}

// NewMQTTChannel 创建 MQTT 通道
func NewMQTTChannel(publisher Publisher, deviceID, telemetryTopic, alertTopic string, qos byte, logger *zap.Logger) *MQTTChannel {
	return &MQTTChannel{
		publisher:      publisher,
		telemetryTopic: telemetryTopic,
		alertTopic:     alertTopic,
		qos:            qos,
		deviceID:       deviceID,
		logger:         logger,
	}
}

// Name 通道名
func (c *MQTTChannel) Name() string {
	return "mqtt"
}

type telemetryPayload struct {
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"timestamp"`
	Fields    Fields `json:"fields"`
}

type alertPayload struct {
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// Upload 发布遥测 JSON
func (c *MQTTChannel) Upload(_ context.Context, fields Fields) bool {
	return c.publishJSON(c.telemetryTopic, telemetryPayload{
		DeviceID:  c.deviceID,
		Timestamp: time.Now().Unix(),
		Fields:    fields,
	})
}

// Send 发布报警 JSON
func (c *MQTTChannel) Send(_ context.Context, message string) bool {
	return c.publishJSON(c.alertTopic, alertPayload{
		DeviceID:  c.deviceID,
		Timestamp: time.Now().Unix(),
		Message:   message,
	})
}

func (c *MQTTChannel) publishJSON(topic string, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal MQTT payload", zap.Error(err))
		return false
	}
	if err := c.publisher.Publish(topic, c.qos, false, payload); err != nil {
		c.logger.Error("Failed to publish MQTT message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return false
	}
	return true
}
