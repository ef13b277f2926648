package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisKVStore_GetSet(t *testing.T) {
	_, client := setupMiniRedis(t)
	kv := NewRedisKVStore(client)
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestRedisKVStore_GetWithTTL(t *testing.T) {
	mr, client := setupMiniRedis(t)
	kv := NewRedisKVStore(client)
	ctx := context.Background()

	_, _, err := kv.GetWithTTL(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, kv.Set(ctx, "k", "v", time.Hour))
	mr.FastForward(10 * time.Minute)
	val, ttl, err := kv.GetWithTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
	assert.Equal(t, 50*time.Minute, ttl)

	require.NoError(t, kv.Set(ctx, "forever", "v", 0))
	_, ttl, err = kv.GetWithTTL(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)
}

func TestRedisKVStore_ConnectionErrorIsNotMiss(t *testing.T) {
	mr, client := setupMiniRedis(t)
	kv := NewRedisKVStore(client)
	mr.Close()

	_, err := kv.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Contains(t, err.Error(), "failed to get k")
}

func TestStateCache_PublishWithTTL(t *testing.T) {
	mr, client := setupMiniRedis(t)
	c := NewStateCache(NewRedisKVStore(client), 30*time.Second, zap.NewNop())
	ctx := context.Background()

	d := 120.5
	snap := models.Snapshot{
		DeviceID: "dev-1",
		Motion:   models.MotionSnapshot{Steps: 12, Posture: models.PostureSitting},
		Presence: models.PresenceSnapshot{DistanceCM: &d, PersonPresent: true},
	}
	require.NoError(t, c.Publish(ctx, snap))

	key := RealtimeKey("dev-1")
	assert.Equal(t, "guardian:device:dev-1:realtime", key)
	assert.Equal(t, 30*time.Second, mr.TTL(key))

	raw, err := mr.Get(key)
	require.NoError(t, err)
	var got models.Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, 12, got.Motion.Steps)
	require.NotNil(t, got.Presence.DistanceCM)
	assert.Equal(t, 120.5, *got.Presence.DistanceCM)

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists(key))
}

func TestStateStore_SaveLoad(t *testing.T) {
	mr, client := setupMiniRedis(t)
	s := NewStateStore(NewRedisKVStore(client), "dev-1", 0, zap.NewNop())
	ctx := context.Background()

	_, ok, err := s.LoadTime(ctx, FieldLastFallTime)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2025, 3, 1, 10, 0, 0, 123e6, time.UTC)
	require.NoError(t, s.SaveTime(ctx, FieldLastFallTime, at))
	assert.Equal(t, DefaultStateTTL, mr.TTL(StateKey("dev-1", FieldLastFallTime)))

	got, ok, err := s.LoadTime(ctx, FieldLastFallTime)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))

	require.NoError(t, mr.Set(StateKey("dev-1", FieldLastCheckinTime), "not-a-number"))
	_, ok, err = s.LoadTime(ctx, FieldLastCheckinTime)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_RedisDown(t *testing.T) {
	mr, client := setupMiniRedis(t)
	s := NewStateStore(NewRedisKVStore(client), "dev-1", time.Hour, zap.NewNop())
	mr.Close()

	_, _, err := s.LoadTime(context.Background(), FieldLastFallTime)
	assert.Error(t, err)
}

func TestEventPublisher_OnlyAlarmRecords(t *testing.T) {
	_, client := setupMiniRedis(t)
	p := NewEventPublisher(client, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, p.AppendRow(ctx, models.Record{Kind: models.RecordActivity, Activity: &models.ActivityRecord{}}))

	event := &models.AlarmEvent{
		EventID:     "4b0b1c1e-6f55-4a57-9a0b-0c8e5e1d2f3a",
		DeviceID:    "dev-1",
		EventType:   models.EventTypeFall,
		Category:    models.CategorySafety,
		AlarmLevel:  models.AlarmLevelAlert,
		AlarmStatus: models.AlarmStatusActive,
		TriggeredAt: time.Unix(1740823200, 0),
		TriggerData: `{"event_type":"Fall"}`,
		Message:     "fall",
	}
	require.NoError(t, p.AppendRow(ctx, models.Record{Kind: models.RecordAlarm, Alarm: event}))

	msgs, err := client.XRange(ctx, EventStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Fall", msgs[0].Values["event_type"])
	assert.Equal(t, "1740823200", msgs[0].Values["triggered_at"])
	assert.Equal(t, event.EventID, msgs[0].Values["event_id"])
}
