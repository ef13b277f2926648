// Package evaluator 运动与在场数据的报警状态机
//
//   - FallDetector: Normal → PotentialFall → Confirmed → Normal，带确认窗口和冷却时间
//   - InactivityMonitor: 清醒时段内持续静止超时报警（一次性，报警后重新计时）
//   - PresenceMonitor: 双阈值滞回的在场/离开判断，每次离开最多一次长时间离开报警
//
// 各状态机只在所属 consumer 的 goroutine 中调用，内部不加锁。
package evaluator

import (
	"context"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// Alerter 报警推送（notify.Dispatcher 实现）
type Alerter interface {
	Send(ctx context.Context, message string) bool
}

// RecordSink 持久化接口（repository.MultiSink 实现）
type RecordSink interface {
	AppendRow(ctx context.Context, record models.Record) error
}

// persistAlarm 写入报警事件，失败只记录日志
func persistAlarm(ctx context.Context, sink RecordSink, event *models.AlarmEvent, logger *zap.Logger) {
	if sink == nil || event == nil {
		return
	}
	if err := sink.AppendRow(ctx, models.Record{Kind: models.RecordAlarm, Alarm: event}); err != nil {
		logger.Error("Failed to create alarm event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return
	}
	logger.Info("Alarm event created",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("alarm_level", event.AlarmLevel),
	)
}
