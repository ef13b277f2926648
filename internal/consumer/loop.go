// Package consumer 传感器轮询循环
//
// 每个循环在独立 goroutine 中运行：按固定周期调用 Poll，每次迭代开始时检查
// SharedState.Running()，ctx 取消或 Stop 后在一个周期内退出。
// 单次迭代的错误只记录日志，不会终止循环；panic 会结束循环并以错误返回。
package consumer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RunningFlag 运行标志（state.SharedState 实现）
type RunningFlag interface {
	Running() bool
}

// TimeStore 跨重启保存的时间点（cache.StateStore 实现）
type TimeStore interface {
	SaveTime(ctx context.Context, field string, t time.Time) error
}

// runLoop 周期执行 poll，直到 ctx 取消或 running 变为 false
func runLoop(ctx context.Context, name string, interval time.Duration, running RunningFlag, poll func(ctx context.Context), logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Consumer panicked, stopping",
				zap.String("consumer", name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("consumer %s panicked: %v", name, r)
		}
	}()

	logger.Info("Consumer started",
		zap.String("consumer", name),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !running.Running() {
			logger.Info("Consumer stopped", zap.String("consumer", name))
			return nil
		}
		poll(ctx)

		select {
		case <-ctx.Done():
			logger.Info("Consumer stopped", zap.String("consumer", name), zap.Error(ctx.Err()))
			return nil
		case <-ticker.C:
		}
	}
}

// throttle 每 every 次返回一次 true（第 1、every+1、2*every+1 ... 次）
type throttle struct {
	every int
	n     int
}

func (t *throttle) hit() bool {
	t.n++
	if t.every <= 1 {
		return true
	}
	return t.n%t.every == 1
}

func (t *throttle) reset() {
	t.n = 0
}
