package interaction

import (
	"fmt"
	"time"

	"wisefido-guardian/internal/models"
)

// IdleScreen 空闲屏第一行：温湿度或传感器错误
func IdleScreen(c models.Climate) string {
	if !c.Valid {
		return "Sensor Error!"
	}
	return fmt.Sprintf("T:%.0fC H:%.0f%%", c.Temperature, c.Humidity)
}

// PresenceScreen 距离/在场状态
func PresenceScreen(p models.PresenceSnapshot) (string, string) {
	if p.DistanceCM == nil {
		return "Ultrasonic Error", "Sensor offline"
	}
	present := "No"
	if p.PersonPresent {
		present = "Yes"
	}
	return fmt.Sprintf("Dist:%.1fcm", *p.DistanceCM), "Present: " + present
}

// OverallStatus 平均感受 > 6 且签到完成多于错过时为 "Good"
func OverallStatus(s models.DailySummary) string {
	if s.AvgFeeling > 6 && s.CheckinsCompleted > s.CheckinsMissed {
		return "Good"
	}
	return "Check needed"
}

// SummaryScreens 每日汇总的四屏内容
func SummaryScreens(s models.DailySummary) [][2]string {
	return [][2]string{
		{"Summary " + summaryDate(s.Date), fmt.Sprintf("Steps today: %d", s.Steps)},
		{
			fmt.Sprintf("Eaten: %s (%dx)", yesNo(s.EatenCount > 0), s.EatenCount),
			fmt.Sprintf("Walked: %s (%dx)", yesNo(s.WalkedCount > 0), s.WalkedCount),
		},
		{
			fmt.Sprintf("Avg Feeling: %.1f/9", s.AvgFeeling),
			fmt.Sprintf("Check-ins: %d/%d", s.CheckinsCompleted, s.CheckinsCompleted+s.CheckinsMissed),
		},
		{"Overall Status:", OverallStatus(s)},
	}
}

func summaryDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("01/02")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
