package models

import "time"

// RecordKind 持久化记录类型
type RecordKind string

const (
	RecordActivity     RecordKind = "activity"
	RecordFall         RecordKind = "fall"
	RecordDailySummary RecordKind = "daily_summary"
	RecordAlarm        RecordKind = "alarm"
)

// Record 写入 PersistenceSink 的一行记录，按 Kind 只填充一个字段
type Record struct {
	Kind     RecordKind
	Activity *ActivityRecord
	Fall     *FallRecord
	Summary  *DailySummary
	Alarm    *AlarmEvent
}

// ActivityRecord 用户按键上报的活动（吃饭/散步）与当时的传感器数据
type ActivityRecord struct {
	DeviceID      string
	Timestamp     time.Time
	Temperature   float64
	Humidity      float64
	UserStatus    string // "eaten" 或 "walked"
	Feeling       int
	Steps         int
	X             float64
	Y             float64
	Z             float64
	Magnitude     float64
	Posture       Posture
	DistanceCM    *float64
	PersonPresent bool
}

// FallRecord 确认跌倒时的传感器快照
type FallRecord struct {
	DeviceID  string
	Timestamp time.Time
	X         float64
	Y         float64
	Z         float64
	Magnitude float64
	PitchDeg  float64
	RollDeg   float64
	Reason    FallReason
	Detail    string
}
