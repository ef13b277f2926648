package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// PostgresSink 报警事件、每日汇总、活动记录写入 PostgreSQL
// 跌倒记录只以 alarm_events 的形式入库
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSink 创建 PostgreSQL 持久化
func NewPostgresSink(db *sql.DB, logger *zap.Logger) *PostgresSink {
	return &PostgresSink{
		db:     db,
		logger: logger,
	}
}

// AppendRow 实现 RecordSink
func (r *PostgresSink) AppendRow(ctx context.Context, record models.Record) error {
	switch record.Kind {
	case models.RecordAlarm:
		return r.CreateAlarmEvent(ctx, record.Alarm)
	case models.RecordDailySummary:
		return r.UpsertDailySummary(ctx, record.Summary)
	case models.RecordActivity:
		return r.InsertActivity(ctx, record.Activity)
	}
	return nil
}

// CreateAlarmEvent 创建报警事件
func (r *PostgresSink) CreateAlarmEvent(ctx context.Context, event *models.AlarmEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.EventID == "" {
		return fmt.Errorf("event_id is required")
	}

	query := `
		INSERT INTO alarm_events (
			event_id,
			device_id,
			event_type,
			category,
			alarm_level,
			alarm_status,
			triggered_at,
			trigger_data,
			message,
			metadata,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		event.EventID,
		event.DeviceID,
		event.EventType,
		event.Category,
		event.AlarmLevel,
		event.AlarmStatus,
		event.TriggeredAt,
		event.TriggerData,
		event.Message,
		event.Metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alarm event: %w", err)
	}

	r.logger.Debug("Alarm event stored",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
	)
	return nil
}

// UpsertDailySummary 写入每日汇总，同一设备同一天重复归档时覆盖
func (r *PostgresSink) UpsertDailySummary(ctx context.Context, s *models.DailySummary) error {
	if s == nil {
		return fmt.Errorf("summary is required")
	}

	query := `
		INSERT INTO daily_summaries (
			device_id,
			date,
			steps,
			eaten_count,
			walked_count,
			avg_feeling,
			checkins_completed,
			checkins_missed,
			archived_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (device_id, date) DO UPDATE SET
			steps = EXCLUDED.steps,
			eaten_count = EXCLUDED.eaten_count,
			walked_count = EXCLUDED.walked_count,
			avg_feeling = EXCLUDED.avg_feeling,
			checkins_completed = EXCLUDED.checkins_completed,
			checkins_missed = EXCLUDED.checkins_missed,
			archived_at = EXCLUDED.archived_at
	`

	_, err := r.db.ExecContext(ctx,
		query,
		s.DeviceID,
		s.Date,
		s.Steps,
		s.EatenCount,
		s.WalkedCount,
		s.AvgFeeling,
		s.CheckinsCompleted,
		s.CheckinsMissed,
		s.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}
	return nil
}

// InsertActivity 写入一条活动记录
func (r *PostgresSink) InsertActivity(ctx context.Context, a *models.ActivityRecord) error {
	if a == nil {
		return fmt.Errorf("activity is required")
	}

	query := `
		INSERT INTO activity_log (
			device_id,
			recorded_at,
			user_status,
			feeling,
			steps,
			temperature,
			humidity,
			x_axis,
			y_axis,
			z_axis,
			magnitude,
			posture,
			distance_cm,
			person_present
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	var distance sql.NullFloat64
	if a.DistanceCM != nil {
		distance = sql.NullFloat64{Float64: *a.DistanceCM, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		query,
		a.DeviceID,
		a.Timestamp,
		a.UserStatus,
		a.Feeling,
		a.Steps,
		a.Temperature,
		a.Humidity,
		a.X,
		a.Y,
		a.Z,
		a.Magnitude,
		string(a.Posture),
		distance,
		a.PersonPresent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// LastTriggeredAt 设备某类报警最近一次触发时间；没有记录时返回 false
// 用于 Redis 未启用时恢复跌倒冷却
func (r *PostgresSink) LastTriggeredAt(ctx context.Context, deviceID, eventType string) (time.Time, bool, error) {
	query := `
		SELECT triggered_at
		FROM alarm_events
		WHERE device_id = $1
		  AND event_type = $2
		ORDER BY triggered_at DESC
		LIMIT 1
	`

	var at time.Time
	err := r.db.QueryRowContext(ctx, query, deviceID, eventType).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last %s event: %w", eventType, err)
	}
	return at, true, nil
}
