package consumer

import (
	"context"
	"time"

	"wisefido-guardian/internal/cache"
	"wisefido-guardian/internal/checkin"
	"wisefido-guardian/internal/state"

	"go.uber.org/zap"
)

// CheckinConsumer 定时签到轮询
type CheckinConsumer struct {
	interval  time.Duration
	scheduler *checkin.Scheduler
	state     *state.SharedState
	store     TimeStore
	now       func() time.Time
	logger    *zap.Logger

	savedCheckin time.Time
}

// NewCheckinConsumer 创建签到轮询，store 为 nil 时不保存签到时间
func NewCheckinConsumer(
	interval time.Duration,
	scheduler *checkin.Scheduler,
	shared *state.SharedState,
	store TimeStore,
	logger *zap.Logger,
) *CheckinConsumer {
	return &CheckinConsumer{
		interval:     interval,
		scheduler:    scheduler,
		state:        shared,
		store:        store,
		now:          time.Now,
		logger:       logger,
		savedCheckin: scheduler.LastCheckin(),
	}
}

// Start 运行轮询循环
func (c *CheckinConsumer) Start(ctx context.Context) error {
	return runLoop(ctx, "checkin", c.interval, c.state, c.Poll, c.logger)
}

// Poll 推进一次签到状态机
func (c *CheckinConsumer) Poll(ctx context.Context) {
	c.state.PublishCheckin(c.scheduler.Tick(ctx, c.now()))

	last := c.scheduler.LastCheckin()
	if c.store == nil || last.Equal(c.savedCheckin) {
		return
	}
	if err := c.store.SaveTime(ctx, cache.FieldLastCheckinTime, last); err != nil {
		c.logger.Warn("Failed to save last check-in time", zap.Error(err))
		return
	}
	c.savedCheckin = last
}
