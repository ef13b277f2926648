// Package checkin 定时签到：清醒时段内每隔固定时间提示用户按键确认
package checkin

import (
	"context"
	"time"

	"wisefido-guardian/internal/evaluator"
	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/notify"

	"go.uber.org/zap"
)

// 签到提示文本（16 列屏幕）
const (
	PromptLine1 = "CHECK-IN TIME!"
	PromptLine2 = "Press 1 or 2"
)

// Prompter 屏幕提示（ui.Channel 实现）
type Prompter interface {
	Prompt(line1, line2 string)
	Clear()
}

// InteractionSource 最近一次用户按键时间（state.SharedState 实现）
type InteractionSource interface {
	LastInteraction() time.Time
}

// WakeSchedule 清醒时段（schedule.WakeWindow 实现）
type WakeSchedule interface {
	IsWake(t time.Time) bool
}

// Counter 每日签到计数（daily.Aggregator 实现）
type Counter interface {
	RecordCheckin(ctx context.Context, now time.Time, completed bool)
}

// Config 签到参数
type Config struct {
	Interval time.Duration // 两次签到间隔，默认 4h
	Timeout  time.Duration // 等待响应的时长，默认 300s
}

// Scheduler 签到状态机 Idle → AwaitingResponse → Idle
// 只在 checkin consumer 的 goroutine 中调用
type Scheduler struct {
	cfg          Config
	wake         WakeSchedule
	prompter     Prompter
	interactions InteractionSource
	alerter      evaluator.Alerter
	counter      Counter
	sink         evaluator.RecordSink
	builder      *evaluator.AlarmEventBuilder
	logger       *zap.Logger

	state       models.CheckinState
	lastCheckin time.Time
}

// NewScheduler 创建签到调度器，start 作为第一次签到的计时起点
func NewScheduler(
	cfg Config,
	deviceID string,
	wake WakeSchedule,
	prompter Prompter,
	interactions InteractionSource,
	alerter evaluator.Alerter,
	counter Counter,
	sink evaluator.RecordSink,
	start time.Time,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		wake:         wake,
		prompter:     prompter,
		interactions: interactions,
		alerter:      alerter,
		counter:      counter,
		sink:         sink,
		builder:      evaluator.NewAlarmEventBuilder(deviceID),
		logger:       logger,
		lastCheckin:  start,
	}
}

// Tick 推进一次状态机，返回签到快照
func (s *Scheduler) Tick(ctx context.Context, now time.Time) models.CheckinSnapshot {
	if !s.state.Waiting && s.wake.IsWake(now) && now.Sub(s.lastCheckin) >= s.cfg.Interval {
		s.prompt(ctx, now)
	}

	if s.state.Waiting {
		switch {
		case s.interactions.LastInteraction().After(s.state.PromptTime):
			s.complete(ctx, now)
		case now.Sub(s.state.PromptTime) > s.cfg.Timeout:
			s.miss(ctx, now)
		}
	}

	return s.snapshot(now)
}

func (s *Scheduler) prompt(ctx context.Context, now time.Time) {
	s.state.Waiting = true
	s.state.PromptTime = now

	s.prompter.Prompt(PromptLine1, PromptLine2)
	if !s.alerter.Send(ctx, notify.MessageScheduledCheckin) {
		s.logger.Warn("Check-in notification was not delivered")
	}
	s.logger.Info("Scheduled check-in triggered, waiting for user response")
}

func (s *Scheduler) complete(ctx context.Context, now time.Time) {
	s.state.Waiting = false
	s.state.CompletedCount++
	s.lastCheckin = now
	s.counter.RecordCheckin(ctx, now, true)
	s.prompter.Clear()

	s.logger.Info("Check-in completed by user interaction",
		zap.Duration("response_time", now.Sub(s.state.PromptTime)),
	)
}

func (s *Scheduler) miss(ctx context.Context, now time.Time) {
	s.state.Waiting = false
	s.state.MissedCount++
	s.lastCheckin = now
	s.counter.RecordCheckin(ctx, now, false)
	s.prompter.Clear()

	msg := notify.MissedCheckinMessage(s.cfg.Timeout)
	s.logger.Warn("Check-in timeout", zap.Time("prompt_time", s.state.PromptTime))
	if !s.alerter.Send(ctx, msg) {
		s.logger.Error("Missed check-in alert was not delivered")
	}

	event, err := s.builder.BuildAlarmEvent(
		models.EventTypeMissedCheckin,
		models.CategoryBehavioral,
		models.AlarmLevelAlert,
		now,
		evaluator.BuildDurationTriggerData(models.EventTypeMissedCheckin, "Scheduler", now.Sub(s.state.PromptTime)),
		msg,
		nil,
	)
	if err != nil {
		s.logger.Error("Failed to build missed check-in alarm event", zap.Error(err))
		return
	}
	if s.sink == nil {
		return
	}
	if err := s.sink.AppendRow(ctx, models.Record{Kind: models.RecordAlarm, Alarm: event}); err != nil {
		s.logger.Error("Failed to create alarm event",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) snapshot(now time.Time) models.CheckinSnapshot {
	snap := models.CheckinSnapshot{WaitingForCheckin: s.state.Waiting}
	if !s.state.Waiting {
		next := s.cfg.Interval - now.Sub(s.lastCheckin)
		if next > 0 {
			snap.NextCheckinInSec = int(next.Seconds())
		}
	}
	return snap
}

// State 当前状态
func (s *Scheduler) State() models.CheckinState {
	return s.state
}

// LastCheckin 最近一次签到结束（完成或超时）的时间
func (s *Scheduler) LastCheckin() time.Time {
	return s.lastCheckin
}

// RestoreLastCheckin 重启后恢复计时起点
func (s *Scheduler) RestoreLastCheckin(t time.Time) {
	if t.After(s.lastCheckin) || s.lastCheckin.IsZero() {
		s.lastCheckin = t
	}
}
