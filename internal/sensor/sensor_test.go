package sensor

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		ok   bool
		kind string
	}{
		{"accel", "A,0.01,-0.02,0.98", true, kindAccel},
		{"accel with spaces", " A, 0.01 , 0.02 , 1.0 \r", true, kindAccel},
		{"distance", "D,153.4", true, kindDistance},
		{"distance NA", "D,NA", true, kindDistance},
		{"climate", "T,24,55", true, kindClimate},
		{"empty", "", false, ""},
		{"unknown kind", "X,1,2", false, ""},
		{"accel missing axis", "A,0.1,0.2", false, ""},
		{"accel bad number", "A,0.1,abc,0.3", false, ""},
		{"distance extra field", "D,100,2", false, ""},
		{"climate bad", "T,warm,55", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := parseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.kind, r.kind)
			}
		})
	}
}

func TestParseLine_Values(t *testing.T) {
	r, ok := parseLine("A,0.01,-0.02,0.98")
	require.True(t, ok)
	assert.Equal(t, 0.01, r.sample.X)
	assert.Equal(t, -0.02, r.sample.Y)
	assert.Equal(t, 0.98, r.sample.Z)

	r, ok = parseLine("D,153.4")
	require.True(t, ok)
	assert.True(t, r.valid)
	assert.Equal(t, 153.4, r.distance)

	for _, line := range []string{"D,NA", "D,1.9", "D,400.1"} {
		r, ok = parseLine(line)
		require.True(t, ok, line)
		assert.False(t, r.valid, line)
	}

	r, ok = parseLine("D,2")
	require.True(t, ok)
	assert.True(t, r.valid)

	r, ok = parseLine("T,24,55")
	require.True(t, ok)
	assert.Equal(t, 24.0, r.climate.Temperature)
	assert.Equal(t, 55.0, r.climate.Humidity)
	assert.True(t, r.climate.Valid)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSerialSource_LatestReadingsAndStaleness(t *testing.T) {
	pr, pw := io.Pipe()
	clock := &testClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	src := newSerialSource(pr, 2*time.Second, clock.Now, zap.NewNop())
	ctx := context.Background()

	_, err := src.ReadMotion(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = io.WriteString(pw, "garbage\nA,0.1,0.2,0.9\nD,150\nT,23,48\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := src.ReadClimate(ctx)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	s, err := src.ReadMotion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.9, s.Z)

	d, err := src.ReadDistance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150.0, d)

	_, err = io.WriteString(pw, "D,NA\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := src.ReadDistance(ctx)
		return errors.Is(err, ErrUnavailable)
	}, time.Second, 5*time.Millisecond)

	clock.Advance(3 * time.Second)
	_, err = src.ReadMotion(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	require.NoError(t, pw.Close())
	require.NoError(t, src.Close())
}

func TestSerialSource_MotionSampleDeliveredOnce(t *testing.T) {
	pr, pw := io.Pipe()
	clock := &testClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	src := newSerialSource(pr, 2*time.Second, clock.Now, zap.NewNop())
	ctx := context.Background()

	_, err := io.WriteString(pw, "A,0.1,0.2,0.9\n")
	require.NoError(t, err)

	var first models.Sample3D
	require.Eventually(t, func() bool {
		s, err := src.ReadMotion(ctx)
		first = s
		return err == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.9, first.Z)

	// 下一行到达前不重复交付
	_, err = src.ReadMotion(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = io.WriteString(pw, "A,0.1,0.2,0.4\n")
	require.NoError(t, err)
	var second models.Sample3D
	require.Eventually(t, func() bool {
		s, err := src.ReadMotion(ctx)
		second = s
		return err == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.4, second.Z)

	// 距离不受影响，可重复读取
	_, err = io.WriteString(pw, "D,150\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := src.ReadDistance(ctx)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	d, err := src.ReadDistance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150.0, d)

	require.NoError(t, pw.Close())
	require.NoError(t, src.Close())
}

func TestSyntheticSource_Ranges(t *testing.T) {
	src := NewSyntheticSource(42)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		s, err := src.ReadMotion(ctx)
		require.NoError(t, err)
		assert.True(t, s.X >= -0.05 && s.X <= 0.2)
		assert.True(t, s.Y >= -0.05 && s.Y <= 0.2)
		assert.True(t, s.Z >= -0.05 && s.Z <= 1.0)

		d, err := src.ReadDistance(ctx)
		require.NoError(t, err)
		assert.True(t, d >= MinDistanceCM && d <= MaxDistanceCM)

		c, err := src.ReadClimate(ctx)
		require.NoError(t, err)
		assert.True(t, c.Temperature >= 20 && c.Temperature <= 28)
		assert.True(t, c.Humidity >= 40 && c.Humidity <= 60)
	}
}

func TestSyntheticSource_SeedIsReproducible(t *testing.T) {
	a := NewSyntheticSource(7)
	b := NewSyntheticSource(7)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		sa, _ := a.ReadMotion(ctx)
		sb, _ := b.ReadMotion(ctx)
		assert.Equal(t, sa.X, sb.X)
		assert.Equal(t, sa.Z, sb.Z)
	}
}

func TestSyntheticSource_CancelledContext(t *testing.T) {
	src := NewSyntheticSource(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.ReadDistance(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSource_Modes(t *testing.T) {
	cfg := &config.Config{}
	cfg.Sensor.Mode = ModeSynthetic
	src, err := NewSource(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SyntheticSource{}, src)

	cfg.Sensor.Mode = "gpio"
	_, err = NewSource(cfg, zap.NewNop())
	assert.Error(t, err)
}
