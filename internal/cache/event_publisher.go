package cache

import (
	"context"
	"fmt"

	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/redis"

	"go.uber.org/zap"
)

// 报警事件流
const (
	EventStream       = "guardian:event:stream"
	EventStreamMaxLen = 10000
)

// EventPublisher 把报警事件写入 Redis Stream，供服务端报警模块消费
// 实现 RecordSink，只处理 alarm 记录
type EventPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(client *redis.Client, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		client: client,
		stream: EventStream,
		logger: logger,
	}
}

// AppendRow 实现 RecordSink
func (p *EventPublisher) AppendRow(ctx context.Context, record models.Record) error {
	if record.Kind != models.RecordAlarm || record.Alarm == nil {
		return nil
	}
	return p.Publish(ctx, record.Alarm)
}

// Publish 发布单个报警事件
func (p *EventPublisher) Publish(ctx context.Context, event *models.AlarmEvent) error {
	id, err := redis.PublishToStream(ctx, p.client, p.stream, EventStreamMaxLen, map[string]interface{}{
		"event_id":     event.EventID,
		"device_id":    event.DeviceID,
		"event_type":   event.EventType,
		"category":     event.Category,
		"alarm_level":  event.AlarmLevel,
		"alarm_status": event.AlarmStatus,
		"triggered_at": event.TriggeredAt.Unix(),
		"trigger_data": event.TriggerData,
		"message":      event.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to publish alarm event: %w", err)
	}

	p.logger.Debug("Alarm event published",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
	)
	return nil
}
