// Package interaction 按键交互主循环：活动上报、状态查看、每日汇总
package interaction

import (
	"context"
	"fmt"
	"time"

	"wisefido-guardian/internal/daily"
	"wisefido-guardian/internal/evaluator"
	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/notify"
	"wisefido-guardian/internal/state"
	"wisefido-guardian/internal/ui"

	"go.uber.org/zap"
)

// 按键定义
const (
	KeyEaten   = 1
	KeyWalked  = 2
	KeyMotion  = 3
	KeySensor  = 4
	KeySummary = 5
)

// DefaultFeeling 超时或越界时的感受评分
const DefaultFeeling = 5

// DailyStats 每日统计（daily.Aggregator 实现）
type DailyStats interface {
	RecordActivity(ctx context.Context, now time.Time, activity string)
	AddFeeling(ctx context.Context, now time.Time, rating int)
	Summary(ctx context.Context, now time.Time) models.DailySummary
}

// Uploader 遥测上传（notify.Dispatcher 实现）
type Uploader interface {
	Upload(ctx context.Context, fields notify.Fields) bool
}

// ClimateReader 温湿度读取（sensor.Source 实现）
type ClimateReader interface {
	ReadClimate(ctx context.Context) (models.Climate, error)
}

// Config 交互参数
type Config struct {
	KeyPollTimeout  time.Duration // 单次等待按键，默认 500ms
	FeelingTimeout  time.Duration // 等待感受评分，默认 10s
	IdleRefreshPoll int           // 空闲 N 次轮询刷新一次屏幕
	ScreenHold      time.Duration // 信息屏停留时间，默认 3s
	GreetingHold    time.Duration // "Have a nice day!" 停留时间，默认 2s
}

// Loop 交互主循环，只在一个 goroutine 中运行
type Loop struct {
	cfg       Config
	deviceID  string
	keys      ui.KeySource
	screen    ui.Channel
	state     *state.SharedState
	daily     DailyStats
	alerter   evaluator.Alerter
	telemetry Uploader
	sink      evaluator.RecordSink
	climate   ClimateReader
	now       func() time.Time
	logger    *zap.Logger

	idlePolls int
}

// NewLoop 创建交互循环
func NewLoop(
	cfg Config,
	deviceID string,
	keys ui.KeySource,
	screen ui.Channel,
	shared *state.SharedState,
	stats DailyStats,
	alerter evaluator.Alerter,
	telemetry Uploader,
	sink evaluator.RecordSink,
	climate ClimateReader,
	logger *zap.Logger,
) *Loop {
	if cfg.IdleRefreshPoll <= 0 {
		cfg.IdleRefreshPoll = 10
	}
	return &Loop{
		cfg:       cfg,
		deviceID:  deviceID,
		keys:      keys,
		screen:    screen,
		state:     shared,
		daily:     stats,
		alerter:   alerter,
		telemetry: telemetry,
		sink:      sink,
		climate:   climate,
		now:       time.Now,
		logger:    logger,
	}
}

// Run 运行直到 ctx 取消或 SharedState 停止，panic 以错误返回
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Interaction loop panicked, stopping",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("interaction loop panicked: %v", r)
		}
	}()

	l.logger.Info("Interaction loop started")
	for l.state.Running() {
		if ctx.Err() != nil {
			break
		}
		l.Step(ctx)
	}
	l.logger.Info("Interaction loop stopped")
	return nil
}

// Step 一次轮询：必要时刷新空闲屏，等待一个按键并处理
func (l *Loop) Step(ctx context.Context) {
	if l.idlePolls%l.cfg.IdleRefreshPoll == 0 && !l.state.Checkin().WaitingForCheckin {
		l.showIdle(ctx)
	}
	l.idlePolls++

	key, ok := l.keys.NextKey(ctx, l.cfg.KeyPollTimeout)
	if !ok {
		return
	}

	l.state.RecordInteraction(l.now())
	l.logger.Debug("Key pressed", zap.Int("key", key))
	l.HandleKey(ctx, key)
	l.idlePolls = 0
}

// HandleKey 处理单个按键，未定义的按键忽略
func (l *Loop) HandleKey(ctx context.Context, key int) {
	switch key {
	case KeyEaten:
		l.reportActivity(ctx, daily.ActivityEaten)
	case KeyWalked:
		l.reportActivity(ctx, daily.ActivityWalked)
	case KeyMotion:
		m := l.state.Motion()
		l.screen.Prompt(fmt.Sprintf("Steps: %d", m.Steps), fmt.Sprintf("Posture: %s", m.Posture))
		l.hold(ctx, l.cfg.ScreenHold)
	case KeySensor:
		line1, line2 := PresenceScreen(l.state.Presence())
		l.screen.Prompt(line1, line2)
		l.hold(ctx, l.cfg.ScreenHold)
	case KeySummary:
		l.showSummary(ctx)
	}
}

func (l *Loop) reportActivity(ctx context.Context, activity string) {
	now := l.now()
	l.daily.RecordActivity(ctx, now, activity)

	feeling := l.askFeeling(ctx)
	l.daily.AddFeeling(ctx, now, feeling)

	l.screen.Prompt("Have a nice day!", "")
	l.hold(ctx, l.cfg.GreetingHold)

	snap := l.state.Snapshot()
	summary := l.daily.Summary(ctx, now)

	if !l.alerter.Send(ctx, notify.ActivityReportMessage(feeling, activity, summary.Steps, snap.Presence.DistanceCM)) {
		l.logger.Warn("Activity report not delivered", zap.String("activity", activity))
	}

	record := &models.ActivityRecord{
		DeviceID:      l.deviceID,
		Timestamp:     now,
		UserStatus:    activity,
		Feeling:       feeling,
		Steps:         snap.Motion.Steps,
		X:             snap.Motion.X,
		Y:             snap.Motion.Y,
		Z:             snap.Motion.Z,
		Magnitude:     snap.Motion.Magnitude,
		Posture:       snap.Motion.Posture,
		DistanceCM:    snap.Presence.DistanceCM,
		PersonPresent: snap.Presence.PersonPresent,
	}
	if snap.Climate.Valid {
		record.Temperature = snap.Climate.Temperature
		record.Humidity = snap.Climate.Humidity
	}
	if l.sink != nil {
		if err := l.sink.AppendRow(ctx, models.Record{Kind: models.RecordActivity, Activity: record}); err != nil {
			l.logger.Error("Failed to persist activity record", zap.String("activity", activity), zap.Error(err))
		}
	}

	if !l.telemetry.Upload(ctx, notify.TelemetryFields(snap, feeling)) {
		l.logger.Warn("Activity telemetry upload failed")
	}

	l.logger.Info("Activity recorded",
		zap.String("activity", activity),
		zap.Int("feeling", feeling),
		zap.Int("steps_today", summary.Steps),
	)
}

func (l *Loop) askFeeling(ctx context.Context) int {
	l.screen.Prompt("Rate ur feeling", "from 1-9")
	key, ok := l.keys.NextKey(ctx, l.cfg.FeelingTimeout)
	if ok {
		l.state.RecordInteraction(l.now())
	}
	return NormalizeFeeling(key, ok)
}

// NormalizeFeeling 超时或不在 1-9 范围内时返回 DefaultFeeling
func NormalizeFeeling(key int, ok bool) int {
	if !ok || key < 1 || key > 9 {
		return DefaultFeeling
	}
	return key
}

func (l *Loop) showIdle(ctx context.Context) {
	c := models.Climate{}
	if l.climate != nil {
		reading, err := l.climate.ReadClimate(ctx)
		if err != nil {
			l.logger.Debug("Climate reading unavailable", zap.Error(err))
		} else {
			c = reading
		}
	}
	l.state.PublishClimate(c)
	l.screen.Prompt(IdleScreen(c), "1.Eaten 2.Walked")
}

func (l *Loop) showSummary(ctx context.Context) {
	summary := l.daily.Summary(ctx, l.now())
	screens := SummaryScreens(summary)
	for i, s := range screens {
		l.screen.Prompt(s[0], s[1])
		if i < len(screens)-1 {
			l.hold(ctx, l.cfg.ScreenHold)
		}
	}
	l.hold(ctx, l.cfg.GreetingHold)

	l.logger.Info("Daily summary displayed",
		zap.String("date", summary.Date),
		zap.Int("steps", summary.Steps),
		zap.Int("eaten", summary.EatenCount),
		zap.Int("walked", summary.WalkedCount),
		zap.Float64("avg_feeling", summary.AvgFeeling),
		zap.Int("checkins_completed", summary.CheckinsCompleted),
		zap.Int("checkins_missed", summary.CheckinsMissed),
	)
}

// hold 保持当前屏幕，ctx 取消时提前返回
func (l *Loop) hold(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
