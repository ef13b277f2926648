package schedule

import (
	"fmt"
	"strings"
	"time"
)

// WakeWindow 清醒时段 [Start, End)，其余时间为睡眠时段
// 睡眠时段内不发送离开报警和静止报警，也不触发定时签到
type WakeWindow struct {
	start    int // 自零点起的分钟数
	end      int
	location *time.Location
}

// NewWakeWindow 解析 "HH:MM" 格式的起止时间
// timezone: "Local"、"" 或 IANA 名称（如 "Asia/Shanghai"）
func NewWakeWindow(start, end, timezone string) (*WakeWindow, error) {
	s, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wake start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wake end: %w", err)
	}

	loc := time.Local
	if timezone != "" && timezone != "Local" {
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to load timezone %s: %w", timezone, err)
		}
	}

	return &WakeWindow{start: s, end: e, location: loc}, nil
}

// IsWake 判断时间是否在清醒时段内
// 支持跨零点的时段（如 20:00-04:00）；start == end 视为全天清醒
func (w *WakeWindow) IsWake(t time.Time) bool {
	local := t.In(w.location)
	m := local.Hour()*60 + local.Minute()

	switch {
	case w.start == w.end:
		return true
	case w.start < w.end:
		return m >= w.start && m < w.end
	default:
		return m >= w.start || m < w.end
	}
}

// Location 时段使用的时区（每日汇总按该时区计算日期）
func (w *WakeWindow) Location() *time.Location {
	return w.location
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
