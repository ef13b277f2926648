package models

import "time"

// MotionSnapshot 运动数据快照（写入方：motion consumer）
type MotionSnapshot struct {
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	Z               float64   `json:"z"`
	Magnitude       float64   `json:"magnitude"`
	Steps           int       `json:"steps"`
	Posture         Posture   `json:"posture"`
	PitchDeg        float64   `json:"pitch"`
	RollDeg         float64   `json:"roll"`
	InactiveSeconds int       `json:"inactive_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PresenceSnapshot 在场数据快照（写入方：presence consumer）
type PresenceSnapshot struct {
	DistanceCM         *float64  `json:"distance"`
	PersonPresent      bool      `json:"person_present"`
	AbsenceDurationSec int       `json:"absence_duration"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CheckinSnapshot 签到数据快照（写入方：check-in scheduler）
type CheckinSnapshot struct {
	WaitingForCheckin bool `json:"waiting_for_checkin"`
	NextCheckinInSec  int  `json:"next_checkin_in"`
}

// Snapshot SharedState 的一致性只读视图
type Snapshot struct {
	DeviceID            string           `json:"device_id"`
	Motion              MotionSnapshot   `json:"motion"`
	Presence            PresenceSnapshot `json:"presence"`
	Checkin             CheckinSnapshot  `json:"checkin"`
	Climate             Climate          `json:"climate"`
	LastUserInteraction time.Time        `json:"last_user_interaction"`
	Timestamp           int64            `json:"timestamp"`
}
