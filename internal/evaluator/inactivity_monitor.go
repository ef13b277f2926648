package evaluator

import (
	"context"
	"time"

	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/notify"

	"go.uber.org/zap"
)

// 本地静止提示持续时间
const inactiveWarningLength = 60 * time.Second

// InactivityConfig 静止检测参数
type InactivityConfig struct {
	Threshold   float64       // magnitude 低于该值视为静止
	Duration    time.Duration // 持续静止超过该时长报警
	WarningTime time.Duration // 持续静止达到该时长时本地提示
}

// InactivityMonitor 静止检测
// 以第一次静止采样的时间为起点计时，与采样频率无关
type InactivityMonitor struct {
	cfg       InactivityConfig
	alerter   Alerter
	indicator notify.Indicator
	sink      RecordSink
	builder   *AlarmEventBuilder
	logger    *zap.Logger

	inactiveSince time.Time
	warned        bool
}

// NewInactivityMonitor 创建静止检测器
func NewInactivityMonitor(
	cfg InactivityConfig,
	deviceID string,
	alerter Alerter,
	indicator notify.Indicator,
	sink RecordSink,
	logger *zap.Logger,
) *InactivityMonitor {
	return &InactivityMonitor{
		cfg:       cfg,
		alerter:   alerter,
		indicator: indicator,
		sink:      sink,
		builder:   NewAlarmEventBuilder(deviceID),
		logger:    logger,
	}
}

// Observe 处理一次 magnitude，返回当前已静止的时长
// 睡眠时段内计时清零；报警后计时清零，需重新静止满 Duration 才会再次报警
func (m *InactivityMonitor) Observe(ctx context.Context, now time.Time, magnitude float64, wake bool) time.Duration {
	if !wake {
		m.reset()
		return 0
	}

	if magnitude >= m.cfg.Threshold {
		m.reset()
		if !m.indicator.Alerting() {
			m.indicator.Normal()
		}
		return 0
	}

	if m.inactiveSince.IsZero() {
		m.inactiveSince = now
	}
	inactive := now.Sub(m.inactiveSince)

	if !m.warned && inactive >= m.cfg.WarningTime {
		m.warned = true
		m.indicator.InactiveWarning(inactiveWarningLength)
	}

	if inactive > m.cfg.Duration {
		m.alert(ctx, now, inactive)
		m.reset()
		return 0
	}

	return inactive
}

func (m *InactivityMonitor) alert(ctx context.Context, now time.Time, inactive time.Duration) {
	msg := notify.InactivityMessage(inactive)
	m.logger.Warn("Inactivity detected", zap.Duration("inactive", inactive))

	if !m.alerter.Send(ctx, msg) {
		m.logger.Error("Inactivity alert was not delivered")
	}

	event, err := m.builder.BuildAlarmEvent(
		models.EventTypeInactivity,
		models.CategoryBehavioral,
		models.AlarmLevelWarning,
		now,
		BuildDurationTriggerData(models.EventTypeInactivity, "Accelerometer", inactive),
		msg,
		nil,
	)
	if err != nil {
		m.logger.Error("Failed to build inactivity alarm event", zap.Error(err))
		return
	}
	persistAlarm(ctx, m.sink, event, m.logger)
}

func (m *InactivityMonitor) reset() {
	m.inactiveSince = time.Time{}
	m.warned = false
}
