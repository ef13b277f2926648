package evaluator

import (
	"context"
	"fmt"
	"math"
	"time"

	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/notify"

	"go.uber.org/zap"
)

// FallConfig 跌倒检测参数
type FallConfig struct {
	ImpactThreshold      float64 // |Δmagnitude| 阈值
	FreeFallThreshold    float64 // magnitude 下限
	TiltDeg              float64 // |pitch| 或 |roll| 超过该角度视为躺倒
	OrientationDeltaDeg  float64 // 单次采样 pitch/roll 变化阈值
	ConfirmationWindow   time.Duration
	Cooldown             time.Duration
	EmergencyAlertLength time.Duration
}

// FallOutcome 单次采样的处理结果
type FallOutcome int

const (
	FallNone      FallOutcome = iota // Normal，无触发
	FallPotential                    // Normal → PotentialFall
	FallPending                      // PotentialFall 持续，尚未确认
	FallCancelled                    // PotentialFall → Normal
	FallConfirmed                    // PotentialFall → Confirmed → Normal
)

func (o FallOutcome) String() string {
	switch o {
	case FallPotential:
		return "potential"
	case FallPending:
		return "pending"
	case FallCancelled:
		return "cancelled"
	case FallConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// FallDetector 跌倒检测状态机
// 上一次采样的 magnitude/pitch/roll 保存在结构体字段中
type FallDetector struct {
	cfg       FallConfig
	deviceID  string
	alerter   Alerter
	indicator notify.Indicator
	sink      RecordSink
	builder   *AlarmEventBuilder
	logger    *zap.Logger

	hasPrev       bool
	prevMagnitude float64
	prevPitch     float64
	prevRoll      float64

	candidate     *models.FallCandidate
	lastConfirmed time.Time
}

// NewFallDetector 创建跌倒检测器
func NewFallDetector(
	cfg FallConfig,
	deviceID string,
	alerter Alerter,
	indicator notify.Indicator,
	sink RecordSink,
	logger *zap.Logger,
) *FallDetector {
	return &FallDetector{
		cfg:       cfg,
		deviceID:  deviceID,
		alerter:   alerter,
		indicator: indicator,
		sink:      sink,
		builder:   NewAlarmEventBuilder(deviceID),
		logger:    logger,
	}
}

// Process 处理一次分类器输出
func (d *FallDetector) Process(ctx context.Context, now time.Time, st models.MotionState) FallOutcome {
	reason, detail, triggered := d.evaluate(st)

	d.hasPrev = true
	d.prevMagnitude = st.Magnitude
	d.prevPitch = st.PitchDeg
	d.prevRoll = st.RollDeg

	if !triggered {
		if d.candidate == nil {
			return FallNone
		}
		d.logger.Info("Potential fall cleared",
			zap.String("reason", string(d.candidate.Reason)),
			zap.Duration("after", now.Sub(d.candidate.StartTime)),
		)
		d.candidate = nil
		d.indicator.Stop()
		return FallCancelled
	}

	if d.candidate == nil {
		d.candidate = &models.FallCandidate{StartTime: now, Reason: reason, Detail: detail}
		d.indicator.Warning(d.cfg.ConfirmationWindow)
		d.logger.Warn("Potential fall detected",
			zap.String("reason", string(reason)),
			zap.String("detail", detail),
		)
		return FallPotential
	}

	// 触发原因以最近一次为准
	d.candidate.Reason = reason
	d.candidate.Detail = detail

	if now.Sub(d.candidate.StartTime) < d.cfg.ConfirmationWindow {
		return FallPending
	}
	if !d.lastConfirmed.IsZero() && now.Sub(d.lastConfirmed) < d.cfg.Cooldown {
		return FallPending
	}

	d.confirm(ctx, now, st)
	return FallConfirmed
}

// evaluate 三项触发条件，任一满足即可；多项同时满足时以靠后的为准
func (d *FallDetector) evaluate(st models.MotionState) (models.FallReason, string, bool) {
	var (
		reason    models.FallReason
		detail    string
		triggered bool
	)

	if d.hasPrev {
		diff := math.Abs(st.Magnitude - d.prevMagnitude)
		if diff > d.cfg.ImpactThreshold {
			reason = models.FallReasonHighImpact
			detail = fmt.Sprintf("High impact detected (diff: %.3f)", diff)
			triggered = true
		}

		if math.Abs(st.PitchDeg) > d.cfg.TiltDeg || math.Abs(st.RollDeg) > d.cfg.TiltDeg {
			pitchChange := math.Abs(st.PitchDeg - d.prevPitch)
			rollChange := math.Abs(st.RollDeg - d.prevRoll)
			if pitchChange > d.cfg.OrientationDeltaDeg || rollChange > d.cfg.OrientationDeltaDeg {
				reason = models.FallReasonSuddenOrientationChange
				detail = fmt.Sprintf("Sudden orientation change - Pitch: %.1f°, Roll: %.1f°", st.PitchDeg, st.RollDeg)
				triggered = true
			}
		}
	}

	if st.Magnitude < d.cfg.FreeFallThreshold {
		reason = models.FallReasonFreeFall
		detail = fmt.Sprintf("Free fall detected (magnitude: %.3f)", st.Magnitude)
		triggered = true
	}

	return reason, detail, triggered
}

func (d *FallDetector) confirm(ctx context.Context, now time.Time, st models.MotionState) {
	candidate := d.candidate
	d.candidate = nil
	d.lastConfirmed = now

	d.logger.Error("Fall confirmed",
		zap.String("reason", string(candidate.Reason)),
		zap.String("detail", candidate.Detail),
		zap.Float64("pitch", st.PitchDeg),
		zap.Float64("roll", st.RollDeg),
		zap.Float64("magnitude", st.Magnitude),
	)

	msg := notify.FallEmergencyMessage(now, candidate.Detail, st.PitchDeg, st.RollDeg, st.Magnitude)
	if !d.alerter.Send(ctx, msg) {
		d.logger.Error("Fall alert was not delivered")
	}
	d.indicator.Emergency(d.cfg.EmergencyAlertLength)

	if d.sink != nil {
		rec := models.Record{
			Kind: models.RecordFall,
			Fall: &models.FallRecord{
				DeviceID:  d.deviceID,
				Timestamp: now,
				X:         st.X,
				Y:         st.Y,
				Z:         st.Z,
				Magnitude: st.Magnitude,
				PitchDeg:  st.PitchDeg,
				RollDeg:   st.RollDeg,
				Reason:    candidate.Reason,
				Detail:    candidate.Detail,
			},
		}
		if err := d.sink.AppendRow(ctx, rec); err != nil {
			d.logger.Error("Failed to persist fall record", zap.Error(err))
		}
	}

	event, err := d.builder.BuildAlarmEvent(
		models.EventTypeFall,
		models.CategorySafety,
		models.AlarmLevelAlert,
		now,
		BuildFallTriggerData(candidate.Reason, st.PitchDeg, st.RollDeg, st.Magnitude, st.Posture),
		msg,
		map[string]interface{}{"detail": candidate.Detail},
	)
	if err != nil {
		d.logger.Error("Failed to build fall alarm event", zap.Error(err))
		return
	}
	persistAlarm(ctx, d.sink, event, d.logger)
}

// Candidate 当前疑似跌倒（副本），Normal 状态返回 nil
func (d *FallDetector) Candidate() *models.FallCandidate {
	if d.candidate == nil {
		return nil
	}
	c := *d.candidate
	return &c
}

// LastConfirmed 最近一次确认跌倒的时间
func (d *FallDetector) LastConfirmed() time.Time {
	return d.lastConfirmed
}

// RestoreLastConfirmed 重启后恢复冷却起点
func (d *FallDetector) RestoreLastConfirmed(t time.Time) {
	if t.After(d.lastConfirmed) {
		d.lastConfirmed = t
	}
}
