package models

import (
	"time"
)

// 报警事件类型
const (
	EventTypeFall             = "Fall"
	EventTypeInactivity       = "Inactivity"
	EventTypeProlongedAbsence = "ProlongedAbsence"
	EventTypeMissedCheckin    = "MissedCheckin"
)

// 报警分类与级别
const (
	CategorySafety     = "safety"
	CategoryBehavioral = "behavioral"

	AlarmLevelAlert   = "ALERT"
	AlarmLevelWarning = "WARNING"

	AlarmStatusActive = "active"
)

// AlarmEvent 报警事件（对应 alarm_events 表）
type AlarmEvent struct {
	EventID     string    `json:"event_id" db:"event_id"`
	DeviceID    string    `json:"device_id" db:"device_id"`
	EventType   string    `json:"event_type" db:"event_type"`
	Category    string    `json:"category" db:"category"`       // safety, behavioral
	AlarmLevel  string    `json:"alarm_level" db:"alarm_level"` // ALERT, WARNING
	AlarmStatus string    `json:"alarm_status" db:"alarm_status"`
	TriggeredAt time.Time `json:"triggered_at" db:"triggered_at"`
	TriggerData string    `json:"trigger_data" db:"trigger_data"` // JSONB
	Message     string    `json:"message" db:"message"`
	Metadata    string    `json:"metadata" db:"metadata"` // JSONB
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TriggerData 触发数据快照（JSONB 结构）
type TriggerData struct {
	EventType   string   `json:"event_type"`
	Source      string   `json:"source"` // "Accelerometer"、"Ultrasonic" 或 "Scheduler"
	Reason      string   `json:"reason,omitempty"`
	PitchDeg    *float64 `json:"pitch_deg,omitempty"`
	RollDeg     *float64 `json:"roll_deg,omitempty"`
	Magnitude   *float64 `json:"magnitude,omitempty"`
	Posture     *string  `json:"posture,omitempty"`
	DistanceCM  *float64 `json:"distance_cm,omitempty"`
	DurationSec *int     `json:"duration_sec,omitempty"`
}
