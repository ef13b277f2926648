// Package database PostgreSQL 连接与表结构
package database

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-guardian/internal/config"

	_ "github.com/lib/pq"
)

// Schema 监护设备使用的表（alarm_events 为服务端同名表的子集）
const Schema = `
CREATE TABLE IF NOT EXISTS alarm_events (
	event_id     UUID PRIMARY KEY,
	device_id    TEXT        NOT NULL,
	event_type   TEXT        NOT NULL,
	category     TEXT        NOT NULL,
	alarm_level  TEXT        NOT NULL,
	alarm_status TEXT        NOT NULL,
	triggered_at TIMESTAMPTZ NOT NULL,
	trigger_data JSONB       NOT NULL DEFAULT '{}',
	message      TEXT        NOT NULL DEFAULT '',
	metadata     JSONB       NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_alarm_events_device_type
	ON alarm_events (device_id, event_type, triggered_at DESC);

CREATE TABLE IF NOT EXISTS daily_summaries (
	device_id          TEXT    NOT NULL,
	date               DATE    NOT NULL,
	steps              INTEGER NOT NULL DEFAULT 0,
	eaten_count        INTEGER NOT NULL DEFAULT 0,
	walked_count       INTEGER NOT NULL DEFAULT 0,
	avg_feeling        DOUBLE PRECISION NOT NULL DEFAULT 0,
	checkins_completed INTEGER NOT NULL DEFAULT 0,
	checkins_missed    INTEGER NOT NULL DEFAULT 0,
	archived_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (device_id, date)
);

CREATE TABLE IF NOT EXISTS activity_log (
	id             BIGSERIAL PRIMARY KEY,
	device_id      TEXT        NOT NULL,
	recorded_at    TIMESTAMPTZ NOT NULL,
	user_status    TEXT        NOT NULL,
	feeling        INTEGER     NOT NULL,
	steps          INTEGER     NOT NULL,
	temperature    DOUBLE PRECISION,
	humidity       DOUBLE PRECISION,
	x_axis         DOUBLE PRECISION,
	y_axis         DOUBLE PRECISION,
	z_axis         DOUBLE PRECISION,
	magnitude      DOUBLE PRECISION,
	posture        TEXT,
	distance_cm    DOUBLE PRECISION,
	person_present BOOLEAN NOT NULL DEFAULT false
);
`

// NewPostgresDB 创建PostgreSQL数据库连接
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.GetDSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema 创建缺失的表
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Close 关闭数据库连接
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
