// Package notify 报警推送与遥测上传
//
// 所有外部调用都只返回 bool（成功/失败），失败原因写日志。
// 一次性报警不重试，避免重复的紧急消息；周期性遥测由下一个周期自然重试。
package notify

import "context"

// AlertChannel 报警推送通道（Telegram、MQTT 等）
type AlertChannel interface {
	Name() string
	Send(ctx context.Context, message string) bool
}

// TelemetryChannel 遥测上传通道（ThingSpeak、MQTT 等）
type TelemetryChannel interface {
	Name() string
	Upload(ctx context.Context, fields Fields) bool
}

// Fields 遥测字段（键名是与仪表盘的约定）
type Fields map[string]float64

// 遥测字段名
const (
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldSteps       = "steps"
	FieldX           = "x"
	FieldY           = "y"
	FieldZ           = "z"
	FieldMagnitude   = "magnitude"
	FieldFeeling     = "feeling"
	FieldDistance    = "distance"
)
