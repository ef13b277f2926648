package service

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"wisefido-guardian/internal/cache"
	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/consumer"
	"wisefido-guardian/internal/notify"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Device.ID = "dev-test"

	cfg.Sensor.Mode = "synthetic"
	cfg.Sensor.Seed = 1

	cfg.Motion.PollInterval = 10 * time.Millisecond
	cfg.Motion.StepThreshold = 0.0015

	cfg.Fall.ImpactThreshold = 0.15
	cfg.Fall.FreeFallThreshold = 0.5
	cfg.Fall.TiltDeg = 70
	cfg.Fall.OrientationDeltaDeg = 45
	cfg.Fall.ConfirmationWindow = 5 * time.Second
	cfg.Fall.Cooldown = 30 * time.Second
	cfg.Fall.EmergencyAlertLength = time.Minute

	cfg.Inactivity.Threshold = 0.02
	cfg.Inactivity.Duration = 300 * time.Second
	cfg.Inactivity.WarningTime = 180 * time.Second

	cfg.Presence.PollInterval = 10 * time.Millisecond
	cfg.Presence.PresentThresholdCM = 200
	cfg.Presence.AbsentThresholdCM = 300
	cfg.Presence.ProlongedAbsence = 30 * time.Minute
	cfg.Presence.NoReadingLogEvery = 5
	cfg.Presence.StatusLogEveryReadings = 10

	cfg.Schedule.WakeStart = "06:00"
	cfg.Schedule.WakeEnd = "22:00"
	cfg.Schedule.Timezone = "UTC"

	cfg.Checkin.PollInterval = 10 * time.Millisecond
	cfg.Checkin.Interval = 4 * time.Hour
	cfg.Checkin.Timeout = 5 * time.Minute

	cfg.Interaction.KeyPollTimeout = 10 * time.Millisecond
	cfg.Interaction.FeelingTimeout = 10 * time.Millisecond
	cfg.Interaction.IdleRefreshPoll = 10

	cfg.Telemetry.Interval = 20 * time.Millisecond
	cfg.Telemetry.DefaultFeeling = 5
	cfg.Telemetry.SnapshotTTL = 30 * time.Second

	cfg.Dispatch.Timeout = time.Second

	cfg.Storage.Dir = t.TempDir()
	cfg.Storage.CSVEnabled = true
	return cfg
}

func TestGuardianService_RunsUntilContextCancelled(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	var screen bytes.Buffer
	svc, err := newGuardianService(cfg, zap.NewNop(), strings.NewReader("3\n"), &screen)
	require.NoError(t, err)
	defer svc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after context cancel")
	}

	assert.False(t, svc.Running())
	assert.True(t, mr.Exists(cache.RealtimeKey("dev-test")))
	assert.Contains(t, screen.String(), "Steps:")
	assert.NoError(t, svc.Stop())
}

func TestGuardianService_StopEndsLoops(t *testing.T) {
	cfg := testConfig(t)
	svc, err := newGuardianService(cfg, zap.NewNop(), nil, &bytes.Buffer{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, svc.Stop())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after Stop")
	}
}

type panickingUploader struct{}

func (panickingUploader) Upload(context.Context, notify.Fields) bool {
	panic("telemetry encoder fault")
}

func TestGuardianService_LoopPanicStopsAllLoops(t *testing.T) {
	cfg := testConfig(t)
	svc, err := newGuardianService(cfg, zap.NewNop(), nil, &bytes.Buffer{})
	require.NoError(t, err)
	defer svc.Stop()

	svc.telemetry = consumer.NewTelemetryConsumer(10*time.Millisecond, 5, panickingUploader{}, nil, nil, svc.shared, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry encoder fault")
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after a loop panicked")
	}
	assert.False(t, svc.Running())
}

func TestGuardianService_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sensor.Mode = "gpio"
	_, err := newGuardianService(cfg, zap.NewNop(), nil, &bytes.Buffer{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Schedule.WakeStart = "6am"
	_, err = newGuardianService(cfg, zap.NewNop(), nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestGuardianService_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = addr

	_, err := newGuardianService(cfg, zap.NewNop(), nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}

func TestGuardianService_RestoresStateFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	last := time.Now().Add(-10 * time.Second).Truncate(time.Millisecond)
	require.NoError(t, mr.Set(cache.StateKey("dev-test", cache.FieldLastFallTime), strconv.FormatInt(last.UnixMilli(), 10)))

	svc, err := newGuardianService(cfg, zap.NewNop(), nil, &bytes.Buffer{})
	require.NoError(t, err)
	defer svc.Stop()

	assert.True(t, svc.fall.LastConfirmed().Equal(last))
	// CSV + 报警事件流
	assert.Equal(t, 2, svc.sink.Len())
}
