package models

import "time"

// DateLayout 日期格式（DailyCounters.Date）
const DateLayout = "2006-01-02"

// DailyCounters 当天的统计计数（跨日时归档并重置）
type DailyCounters struct {
	Date              string `json:"date"` // "2025-02-20"
	StepsStartOffset  int    `json:"steps_start_offset"`
	EatenCount        int    `json:"eaten_count"`
	WalkedCount       int    `json:"walked_count"`
	FeelingRatings    []int  `json:"feeling_ratings"`
	CheckinsCompleted int    `json:"checkins_completed"`
	CheckinsMissed    int    `json:"checkins_missed"`
}

// DailySummary 归档的每日汇总（daily_summaries）
type DailySummary struct {
	DeviceID          string    `json:"device_id"`
	Date              string    `json:"date"`
	Steps             int       `json:"steps"`
	EatenCount        int       `json:"eaten_count"`
	WalkedCount       int       `json:"walked_count"`
	AvgFeeling        float64   `json:"avg_feeling"`
	CheckinsCompleted int       `json:"checkins_completed"`
	CheckinsMissed    int       `json:"checkins_missed"`
	ArchivedAt        time.Time `json:"archived_at"`
}
