package evaluator

import (
	"encoding/json"
	"fmt"
	"time"

	"wisefido-guardian/internal/models"

	"github.com/google/uuid"
)

// AlarmEventBuilder 报警事件构建器
type AlarmEventBuilder struct {
	deviceID string
}

// NewAlarmEventBuilder 创建报警事件构建器
func NewAlarmEventBuilder(deviceID string) *AlarmEventBuilder {
	return &AlarmEventBuilder{
		deviceID: deviceID,
	}
}

// BuildAlarmEvent 构建报警事件
func (b *AlarmEventBuilder) BuildAlarmEvent(
	eventType string,
	category string,
	alarmLevel string,
	triggeredAt time.Time,
	triggerData *models.TriggerData,
	message string,
	metadata map[string]interface{},
) (*models.AlarmEvent, error) {
	// 序列化 trigger_data
	triggerDataJSON, err := json.Marshal(triggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	// 序列化 metadata
	metadataJSON := "{}"
	if metadata != nil {
		metadataBytes, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = string(metadataBytes)
	}

	event := &models.AlarmEvent{
		EventID:     uuid.New().String(),
		DeviceID:    b.deviceID,
		EventType:   eventType,
		Category:    category,
		AlarmLevel:  alarmLevel,
		AlarmStatus: models.AlarmStatusActive,
		TriggeredAt: triggeredAt,
		TriggerData: string(triggerDataJSON),
		Message:     message,
		Metadata:    metadataJSON,
		CreatedAt:   time.Now(),
	}

	return event, nil
}

// BuildFallTriggerData 跌倒触发数据
func BuildFallTriggerData(reason models.FallReason, pitchDeg, rollDeg, magnitude float64, posture models.Posture) *models.TriggerData {
	p := string(posture)
	return &models.TriggerData{
		EventType: models.EventTypeFall,
		Source:    "Accelerometer",
		Reason:    string(reason),
		PitchDeg:  &pitchDeg,
		RollDeg:   &rollDeg,
		Magnitude: &magnitude,
		Posture:   &p,
	}
}

// BuildDurationTriggerData 以持续时间为主的触发数据（静止、离开、签到超时）
func BuildDurationTriggerData(eventType, source string, duration time.Duration) *models.TriggerData {
	sec := int(duration.Seconds())
	return &models.TriggerData{
		EventType:   eventType,
		Source:      source,
		DurationSec: &sec,
	}
}
