package evaluator

import (
	"context"
	"time"

	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/notify"

	"go.uber.org/zap"
)

// PresenceConfig 在场检测参数
type PresenceConfig struct {
	PresentThresholdCM float64       // distance < 该值 → Present
	AbsentThresholdCM  float64       // distance > 该值 → Absent
	ProlongedAbsence   time.Duration // 清醒时段离开超过该时长报警
	NoReadingLogEvery  int           // 连续无读数每 N 次记录一次
	StatusLogEvery     int           // 每 N 次读数输出一次状态
}

// PresenceMonitor 超声波在场检测
// 初始状态为 Absent，LastChangeTime 为启动时间
type PresenceMonitor struct {
	cfg     PresenceConfig
	alerter Alerter
	sink    RecordSink
	builder *AlarmEventBuilder
	logger  *zap.Logger

	state       models.PresenceState
	transitions int
	readings    int
	misses      int
}

// NewPresenceMonitor 创建在场检测器
func NewPresenceMonitor(
	cfg PresenceConfig,
	deviceID string,
	alerter Alerter,
	sink RecordSink,
	start time.Time,
	logger *zap.Logger,
) *PresenceMonitor {
	return &PresenceMonitor{
		cfg:     cfg,
		alerter: alerter,
		sink:    sink,
		builder: NewAlarmEventBuilder(deviceID),
		logger:  logger,
		state: models.PresenceState{
			Present:        false,
			LastChangeTime: start,
		},
	}
}

// Observe 处理一次有效距离读数
func (m *PresenceMonitor) Observe(ctx context.Context, now time.Time, distanceCM float64, wake bool) models.PresenceSnapshot {
	m.readings++
	m.misses = 0

	if m.cfg.StatusLogEvery > 0 && m.readings%m.cfg.StatusLogEvery == 0 {
		m.logger.Debug("Presence status",
			zap.Float64("distance_cm", distanceCM),
			zap.Bool("present", m.state.Present),
			zap.Int("transitions", m.transitions),
		)
	}

	switch {
	case distanceCM < m.cfg.PresentThresholdCM:
		if !m.state.Present {
			m.transition(now, true)
			m.logger.Info("Person detected", zap.Float64("distance_cm", distanceCM))
		}
	case distanceCM > m.cfg.AbsentThresholdCM:
		if m.state.Present {
			m.transition(now, false)
			m.logger.Info("Person left area", zap.Float64("distance_cm", distanceCM))
		}
	}

	if !m.state.Present && wake && !m.state.AbsenceAlertSent {
		absence := now.Sub(m.state.LastChangeTime)
		if absence > m.cfg.ProlongedAbsence {
			m.alert(ctx, now, absence, distanceCM)
			m.state.AbsenceAlertSent = true
		}
	}

	d := distanceCM
	return m.snapshot(now, &d)
}

// NoReading 传感器超时，保持当前状态不变
func (m *PresenceMonitor) NoReading(now time.Time) models.PresenceSnapshot {
	m.misses++
	if m.cfg.NoReadingLogEvery > 0 && m.misses%m.cfg.NoReadingLogEvery == 0 {
		m.logger.Warn("Failed to get distance reading", zap.Int("consecutive_misses", m.misses))
	}
	return m.snapshot(now, nil)
}

// State 当前状态
func (m *PresenceMonitor) State() models.PresenceState {
	return m.state
}

func (m *PresenceMonitor) transition(now time.Time, present bool) {
	m.state.Present = present
	m.state.LastChangeTime = now
	m.state.AbsenceAlertSent = false
	m.transitions++
}

func (m *PresenceMonitor) snapshot(now time.Time, distance *float64) models.PresenceSnapshot {
	snap := models.PresenceSnapshot{
		DistanceCM:    distance,
		PersonPresent: m.state.Present,
		UpdatedAt:     now,
	}
	if !m.state.Present {
		snap.AbsenceDurationSec = int(now.Sub(m.state.LastChangeTime).Seconds())
	}
	return snap
}

func (m *PresenceMonitor) alert(ctx context.Context, now time.Time, absence time.Duration, distanceCM float64) {
	msg := notify.ProlongedAbsenceMessage(absence)
	m.logger.Warn("Prolonged absence detected", zap.Duration("absence", absence))

	if !m.alerter.Send(ctx, msg) {
		m.logger.Error("Prolonged absence alert was not delivered")
	}

	trigger := BuildDurationTriggerData(models.EventTypeProlongedAbsence, "Ultrasonic", absence)
	trigger.DistanceCM = &distanceCM

	event, err := m.builder.BuildAlarmEvent(
		models.EventTypeProlongedAbsence,
		models.CategoryBehavioral,
		models.AlarmLevelWarning,
		now,
		trigger,
		msg,
		nil,
	)
	if err != nil {
		m.logger.Error("Failed to build absence alarm event", zap.Error(err))
		return
	}
	persistAlarm(ctx, m.sink, event, m.logger)
}
