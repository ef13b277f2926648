// Package cache Redis 缓存：实时快照、报警事件流、跨重启的状态
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss key 不存在或已过期
var ErrCacheMiss = errors.New("cache miss")

// KVStore 快照与状态使用的 KV 操作，测试中可替换
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	// GetWithTTL 同时返回剩余存活时间，未设置过期时 ttl 为 0
	GetWithTTL(ctx context.Context, key string) (string, time.Duration, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

var _ KVStore = (*RedisKVStore)(nil)

// RedisKVStore go-redis 实现
type RedisKVStore struct {
	client *redis.Client
}

// NewRedisKVStore 创建 KV 存储
func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

// GetWithTTL GET 与 PTTL 走同一个 pipeline
func (r *RedisKVStore) GetWithTTL(ctx context.Context, key string) (string, time.Duration, error) {
	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return "", 0, ErrCacheMiss
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to get %s with ttl: %w", key, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = 0
	}
	return get.Val(), remaining, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
