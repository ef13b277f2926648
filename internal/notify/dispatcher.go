package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher 报警/遥测分发器
// 每个通道单独限时，所有通道并发调用，任一成功即返回 true
type Dispatcher struct {
	alerts    []AlertChannel
	telemetry []TelemetryChannel
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDispatcher 创建分发器
func NewDispatcher(alerts []AlertChannel, telemetry []TelemetryChannel, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		alerts:    alerts,
		telemetry: telemetry,
		timeout:   timeout,
		logger:    logger,
	}
}

// Send 推送报警消息
func (d *Dispatcher) Send(ctx context.Context, message string) bool {
	if len(d.alerts) == 0 {
		d.logger.Warn("No alert channel configured, message dropped", zap.String("message", message))
		return false
	}

	ok := fanOut(ctx, d.timeout, len(d.alerts), func(ctx context.Context, i int) bool {
		return d.alerts[i].Send(ctx, message)
	}, func(i int) {
		d.logger.Error("Alert delivery failed", zap.String("channel", d.alerts[i].Name()))
	})

	if ok {
		d.logger.Info("Alert dispatched", zap.String("message", message))
	}
	return ok
}

// Upload 上传遥测
func (d *Dispatcher) Upload(ctx context.Context, fields Fields) bool {
	if len(d.telemetry) == 0 {
		return false
	}

	return fanOut(ctx, d.timeout, len(d.telemetry), func(ctx context.Context, i int) bool {
		return d.telemetry[i].Upload(ctx, fields)
	}, func(i int) {
		d.logger.Warn("Telemetry upload failed", zap.String("channel", d.telemetry[i].Name()))
	})
}

// fanOut 并发调用 n 个通道，每个调用在 timeout 内未返回视为失败
func fanOut(parent context.Context, timeout time.Duration, n int, call func(ctx context.Context, i int) bool, onFail func(i int)) bool {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	results := make([]bool, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			results[i] = callBounded(ctx, func(ctx context.Context) bool { return call(ctx, i) })
			return nil
		})
	}
	_ = g.Wait()

	delivered := false
	for i, ok := range results {
		if ok {
			delivered = true
		} else {
			onFail(i)
		}
	}
	return delivered
}

// callBounded ctx 结束时立即返回 false，通道 panic 也视为失败
func callBounded(ctx context.Context, call func(ctx context.Context) bool) bool {
	done := make(chan bool, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- false
			}
		}()
		done <- call(ctx)
	}()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		return false
	}
}
