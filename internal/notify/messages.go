package notify

import (
	"fmt"
	"time"
)

// 报警文本是与外部接收方（Telegram 群组、值班人员）的约定，保持稳定

const (
	// MessageScheduledCheckin 定时签到提醒
	MessageScheduledCheckin = "🔔 SCHEDULED CHECK-IN: Please confirm you are okay by pressing 1 (eaten) or 2 (walked) on the device."

	timestampLayout = "2006-01-02 15:04:05"
)

// FallEmergencyMessage 确认跌倒的紧急报警
func FallEmergencyMessage(at time.Time, reason string, pitchDeg, rollDeg, magnitude float64) string {
	return fmt.Sprintf("🚨 EMERGENCY FALL ALERT 🚨\n"+
		"Time: %s\n"+
		"Reason: %s\n"+
		"Position: Pitch=%.1f°, Roll=%.1f°\n"+
		"Acceleration: %.3fg\n"+
		"IMMEDIATE ASSISTANCE REQUIRED!",
		at.Format(timestampLayout), reason, pitchDeg, rollDeg, magnitude)
}

// InactivityMessage 长时间静止报警
func InactivityMessage(inactive time.Duration) string {
	return fmt.Sprintf("⚠ No movement detected for %d seconds. Please check on the elderly person.",
		int(inactive.Seconds()))
}

// ProlongedAbsenceMessage 长时间离开报警
func ProlongedAbsenceMessage(absence time.Duration) string {
	return fmt.Sprintf("⚠ PROLONGED ABSENCE ALERT: No person detected for %d minutes. Please check on the elderly person.",
		int(absence.Minutes()))
}

// MissedCheckinMessage 签到超时报警
func MissedCheckinMessage(timeout time.Duration) string {
	return fmt.Sprintf("🚨 MISSED CHECK-IN ALERT: No response to scheduled check-in for %d minutes. Please check on the elderly person immediately!",
		int(timeout.Minutes()))
}

// ActivityReportMessage 用户上报活动后的通知
// distanceCM 为 nil 时省略距离
func ActivityReportMessage(feeling int, activity string, steps int, distanceCM *float64) string {
	msg := fmt.Sprintf("User feeling: %d/9, Activity: %s, Steps today: %d", feeling, activity, steps)
	if distanceCM != nil {
		msg += fmt.Sprintf(", Distance: %.1fcm", *distanceCM)
	}
	return msg
}
