package consumer

import (
	"context"
	"time"

	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/notify"
	"wisefido-guardian/internal/state"

	"go.uber.org/zap"
)

// Uploader 遥测上传（notify.Dispatcher 实现）
type Uploader interface {
	Upload(ctx context.Context, fields notify.Fields) bool
}

// SnapshotCache 实时快照缓存（cache.StateCache 实现）
type SnapshotCache interface {
	Publish(ctx context.Context, snap models.Snapshot) error
}

// DayRoller 每日统计跨日检查（daily.Aggregator 实现）
type DayRoller interface {
	Ensure(ctx context.Context, now time.Time) bool
}

// TelemetryConsumer 周期遥测：上传快照、刷新实时缓存、检查跨日归档
type TelemetryConsumer struct {
	interval time.Duration
	feeling  int
	uploader Uploader
	cache    SnapshotCache
	daily    DayRoller
	state    *state.SharedState
	now      func() time.Time
	logger   *zap.Logger
}

// NewTelemetryConsumer 创建遥测循环，cache 为 nil 时不写实时缓存
func NewTelemetryConsumer(
	interval time.Duration,
	defaultFeeling int,
	uploader Uploader,
	snapshotCache SnapshotCache,
	daily DayRoller,
	shared *state.SharedState,
	logger *zap.Logger,
) *TelemetryConsumer {
	return &TelemetryConsumer{
		interval: interval,
		feeling:  defaultFeeling,
		uploader: uploader,
		cache:    snapshotCache,
		daily:    daily,
		state:    shared,
		now:      time.Now,
		logger:   logger,
	}
}

// Start 运行遥测循环
func (c *TelemetryConsumer) Start(ctx context.Context) error {
	return runLoop(ctx, "telemetry", c.interval, c.state, c.Poll, c.logger)
}

// Poll 一次遥测
func (c *TelemetryConsumer) Poll(ctx context.Context) {
	if c.daily != nil {
		c.daily.Ensure(ctx, c.now())
	}

	snap := c.state.Snapshot()
	if c.uploader.Upload(ctx, notify.TelemetryFields(snap, c.feeling)) {
		c.logger.Debug("Periodic telemetry uploaded", zap.Int("steps", snap.Motion.Steps))
	}

	if c.cache != nil {
		if err := c.cache.Publish(ctx, snap); err != nil {
			c.logger.Warn("Failed to update realtime cache", zap.Error(err))
		}
	}
}
