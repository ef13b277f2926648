package consumer

import (
	"context"
	"errors"
	"time"

	"wisefido-guardian/internal/cache"
	"wisefido-guardian/internal/evaluator"
	"wisefido-guardian/internal/fusion"
	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/sensor"
	"wisefido-guardian/internal/state"

	"go.uber.org/zap"
)

// MotionReader 加速度读数
type MotionReader interface {
	ReadMotion(ctx context.Context) (models.Sample3D, error)
}

// WakeSchedule 清醒时段（schedule.WakeWindow 实现）
type WakeSchedule interface {
	IsWake(t time.Time) bool
}

// 状态日志间隔
const motionStatusLogEvery = 10 * time.Second

// MotionConsumer 加速度轮询：姿态/步数、跌倒检测、静止检测
type MotionConsumer struct {
	interval   time.Duration
	source     MotionReader
	classifier *fusion.MotionClassifier
	fall       *evaluator.FallDetector
	inactivity *evaluator.InactivityMonitor
	wake       WakeSchedule
	state      *state.SharedState
	store      TimeStore
	now        func() time.Time
	logger     *zap.Logger

	readErrors    throttle
	lastStatusLog time.Time
}

// NewMotionConsumer 创建运动轮询，store 为 nil 时不保存跌倒冷却
func NewMotionConsumer(
	interval time.Duration,
	source MotionReader,
	classifier *fusion.MotionClassifier,
	fall *evaluator.FallDetector,
	inactivity *evaluator.InactivityMonitor,
	wake WakeSchedule,
	shared *state.SharedState,
	store TimeStore,
	logger *zap.Logger,
) *MotionConsumer {
	return &MotionConsumer{
		interval:   interval,
		source:     source,
		classifier: classifier,
		fall:       fall,
		inactivity: inactivity,
		wake:       wake,
		state:      shared,
		store:      store,
		now:        time.Now,
		logger:     logger,
		readErrors: throttle{every: 50},
	}
}

// Start 运行轮询循环
func (c *MotionConsumer) Start(ctx context.Context) error {
	return runLoop(ctx, "motion", c.interval, c.state, c.Poll, c.logger)
}

// Poll 一次采样
func (c *MotionConsumer) Poll(ctx context.Context) {
	sample, err := c.source.ReadMotion(ctx)
	if err != nil {
		if c.readErrors.hit() {
			level := c.logger.Warn
			if errors.Is(err, sensor.ErrUnavailable) {
				level = c.logger.Debug
			}
			level("Failed to read accelerometer", zap.Error(err))
		}
		return
	}
	c.readErrors.reset()

	now := c.now()
	st := c.classifier.Process(sample)

	if c.fall.Process(ctx, now, st) == evaluator.FallConfirmed && c.store != nil {
		if err := c.store.SaveTime(ctx, cache.FieldLastFallTime, c.fall.LastConfirmed()); err != nil {
			c.logger.Warn("Failed to save fall cooldown", zap.Error(err))
		}
	}

	inactive := c.inactivity.Observe(ctx, now, st.Magnitude, c.wake.IsWake(now))

	c.state.PublishMotion(models.MotionSnapshot{
		X:               st.X,
		Y:               st.Y,
		Z:               st.Z,
		Magnitude:       st.Magnitude,
		Steps:           st.StepCount,
		Posture:         st.Posture,
		PitchDeg:        st.PitchDeg,
		RollDeg:         st.RollDeg,
		InactiveSeconds: int(inactive.Seconds()),
		UpdatedAt:       now,
	})

	if now.Sub(c.lastStatusLog) >= motionStatusLogEvery {
		c.lastStatusLog = now
		c.logger.Debug("Motion status",
			zap.Int("steps", st.StepCount),
			zap.String("posture", string(st.Posture)),
			zap.Int("inactive_seconds", int(inactive.Seconds())),
			zap.Float64("magnitude", st.Magnitude),
		)
	}
}
