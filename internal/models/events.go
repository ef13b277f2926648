package models

import "time"

// FallReason 跌倒候选的触发原因
type FallReason string

const (
	FallReasonHighImpact              FallReason = "HighImpact"
	FallReasonSuddenOrientationChange FallReason = "SuddenOrientationChange"
	FallReasonFreeFall                FallReason = "FreeFall"
)

// FallCandidate 疑似跌倒（仅存在于 PotentialFall 状态）
type FallCandidate struct {
	StartTime time.Time  `json:"start_time"`
	Reason    FallReason `json:"reason"`
	Detail    string     `json:"detail"`
}

// PresenceState 在场状态（只由 PresenceMonitor 修改）
// AbsenceAlertSent 只有在 Present == false 时才可能为 true
type PresenceState struct {
	Present          bool      `json:"present"`
	LastChangeTime   time.Time `json:"last_change_time"`
	AbsenceAlertSent bool      `json:"absence_alert_sent"`
}

// CheckinState 定时签到状态（只由 CheckinScheduler 修改）
// Waiting == true 时 PromptTime 必然已设置
type CheckinState struct {
	Waiting        bool      `json:"waiting"`
	PromptTime     time.Time `json:"prompt_time"`
	CompletedCount int       `json:"completed_count"`
	MissedCount    int       `json:"missed_count"`
}
