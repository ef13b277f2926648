package models

import "time"

// Sample3D 加速度计原始采样（单位 g）
type Sample3D struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// Posture 姿态分类
type Posture string

const (
	PostureUnknown   Posture = "Unknown"
	PostureStanding  Posture = "Standing or Walking"
	PostureSitting   Posture = "Sitting"
	PostureLyingDown Posture = "Lying Down"
)

// MotionState 运动分类器的内部状态（只由 MotionClassifier 修改）
type MotionState struct {
	StepCount int      `json:"step_count"`
	Posture   Posture  `json:"posture"`
	PitchDeg  float64  `json:"pitch_deg"`
	RollDeg   float64  `json:"roll_deg"`
	Magnitude float64  `json:"magnitude"`
	LastZ     *float64 `json:"last_z,omitempty"`

	// 最近一次采样
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// Climate 温湿度读数（DHT11）
type Climate struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Valid       bool    `json:"valid"`
}
