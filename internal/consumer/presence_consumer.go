package consumer

import (
	"context"
	"errors"
	"time"

	"wisefido-guardian/internal/evaluator"
	"wisefido-guardian/internal/sensor"
	"wisefido-guardian/internal/state"

	"go.uber.org/zap"
)

// DistanceReader 超声波距离读数
type DistanceReader interface {
	ReadDistance(ctx context.Context) (float64, error)
}

// PresenceConsumer 超声波轮询：在场判定与长时间离开报警
type PresenceConsumer struct {
	interval time.Duration
	source   DistanceReader
	monitor  *evaluator.PresenceMonitor
	wake     WakeSchedule
	state    *state.SharedState
	now      func() time.Time
	logger   *zap.Logger
}

// NewPresenceConsumer 创建在场轮询
func NewPresenceConsumer(
	interval time.Duration,
	source DistanceReader,
	monitor *evaluator.PresenceMonitor,
	wake WakeSchedule,
	shared *state.SharedState,
	logger *zap.Logger,
) *PresenceConsumer {
	return &PresenceConsumer{
		interval: interval,
		source:   source,
		monitor:  monitor,
		wake:     wake,
		state:    shared,
		now:      time.Now,
		logger:   logger,
	}
}

// Start 运行轮询循环
func (c *PresenceConsumer) Start(ctx context.Context) error {
	return runLoop(ctx, "presence", c.interval, c.state, c.Poll, c.logger)
}

// Poll 一次测距；无读数时保持在场状态不变
func (c *PresenceConsumer) Poll(ctx context.Context) {
	d, err := c.source.ReadDistance(ctx)
	now := c.now()
	if err != nil {
		if !errors.Is(err, sensor.ErrUnavailable) {
			c.logger.Warn("Failed to read distance", zap.Error(err))
		}
		c.state.PublishPresence(c.monitor.NoReading(now))
		return
	}

	c.state.PublishPresence(c.monitor.Observe(ctx, now, d, c.wake.IsWake(now)))
}
