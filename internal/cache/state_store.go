package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// 跨重启保存的状态字段
const (
	FieldLastFallTime    = "last_fall_time"
	FieldLastCheckinTime = "last_checkin_time"
)

// DefaultStateTTL 状态保存时长
const DefaultStateTTL = 24 * time.Hour

// StateStore 保存跌倒冷却起点与上次签到时间，重启后恢复
type StateStore struct {
	kv       KVStore
	deviceID string
	ttl      time.Duration
	logger   *zap.Logger
}

// NewStateStore 创建状态存储
func NewStateStore(kv KVStore, deviceID string, ttl time.Duration, logger *zap.Logger) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{
		kv:       kv,
		deviceID: deviceID,
		ttl:      ttl,
		logger:   logger,
	}
}

// StateKey 状态字段的 key
func StateKey(deviceID, field string) string {
	return fmt.Sprintf("guardian:device:%s:state:%s", deviceID, field)
}

// SaveTime 保存时间（Unix 毫秒）
func (s *StateStore) SaveTime(ctx context.Context, field string, t time.Time) error {
	key := StateKey(s.deviceID, field)
	if err := s.kv.Set(ctx, key, strconv.FormatInt(t.UnixMilli(), 10), s.ttl); err != nil {
		return fmt.Errorf("failed to save %s: %w", field, err)
	}
	return nil
}

// LoadTime 读取时间；不存在时返回零值和 false
func (s *StateStore) LoadTime(ctx context.Context, field string) (time.Time, bool, error) {
	val, ttl, err := s.kv.GetWithTTL(ctx, StateKey(s.deviceID, field))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to load %s: %w", field, err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		s.logger.Warn("Ignoring corrupt state value",
			zap.String("field", field),
			zap.String("value", val),
		)
		return time.Time{}, false, nil
	}
	t := time.UnixMilli(ms)
	s.logger.Debug("Loaded saved state",
		zap.String("field", field),
		zap.Time("value", t),
		zap.Duration("ttl_remaining", ttl),
	)
	return t, true, nil
}
