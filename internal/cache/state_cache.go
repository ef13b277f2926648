package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// StateCache 实时快照缓存，供看板/远程查询读取
type StateCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewStateCache 创建实时快照缓存
func NewStateCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *StateCache {
	return &StateCache{
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

// RealtimeKey 设备实时快照的 key
func RealtimeKey(deviceID string) string {
	return fmt.Sprintf("guardian:device:%s:realtime", deviceID)
}

// Publish 写入快照（设置 TTL）
func (c *StateCache) Publish(ctx context.Context, snap models.Snapshot) error {
	key := RealtimeKey(snap.DeviceID)

	// 序列化数据
	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.kv.Set(ctx, key, string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	c.logger.Debug("Updated realtime snapshot cache",
		zap.String("device_id", snap.DeviceID),
		zap.String("key", key),
	)
	return nil
}
