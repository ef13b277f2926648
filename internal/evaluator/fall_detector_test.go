package evaluator

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fallTestBase = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func testFallConfig() FallConfig {
	return FallConfig{
		ImpactThreshold:      0.15,
		FreeFallThreshold:    0.5,
		TiltDeg:              70,
		OrientationDeltaDeg:  45,
		ConfirmationWindow:   5 * time.Second,
		Cooldown:             30 * time.Second,
		EmergencyAlertLength: time.Minute,
	}
}

type fallHarness struct {
	detector  *FallDetector
	alerter   *fakeAlerter
	indicator *fakeIndicator
	sink      *fakeSink
}

func newFallHarness(cfg FallConfig) *fallHarness {
	h := &fallHarness{
		alerter:   &fakeAlerter{},
		indicator: &fakeIndicator{},
		sink:      &fakeSink{},
	}
	h.detector = NewFallDetector(cfg, "dev-1", h.alerter, h.indicator, h.sink, zap.NewNop())
	return h
}

func sampleAt(i int) time.Time {
	return fallTestBase.Add(time.Duration(i) * 100 * time.Millisecond)
}

func upright(magnitude float64) models.MotionState {
	return models.MotionState{Magnitude: magnitude, Posture: models.PostureStanding}
}

func TestFallDetector_SustainedImpactConfirmsOnceAtWindow(t *testing.T) {
	h := newFallHarness(testFallConfig())
	ctx := context.Background()

	// 起始采样 magnitude 1.0（无触发）
	require.Equal(t, FallNone, h.detector.Process(ctx, sampleAt(-1), upright(1.0)))

	// 0.3 ↔ 0.6 交替，每次 |Δ| = 0.3 > 0.15，持续 6s
	var confirmedAt []time.Time
	for i := 0; i <= 60; i++ {
		m := 0.6
		if i%2 == 1 {
			m = 0.3
		}
		if h.detector.Process(ctx, sampleAt(i), upright(m)) == FallConfirmed {
			confirmedAt = append(confirmedAt, sampleAt(i))
		}
	}

	require.Len(t, confirmedAt, 1)
	assert.Equal(t, 5*time.Second, confirmedAt[0].Sub(sampleAt(0)))
	assert.Equal(t, 1, h.alerter.count())
	assert.Equal(t, 1, h.indicator.count("emergency"))
	assert.Len(t, h.sink.kinds(models.RecordFall), 1)
	assert.Len(t, h.sink.kinds(models.RecordAlarm), 1)
}

func TestFallDetector_TriggerDisappearingBeforeWindowCancels(t *testing.T) {
	h := newFallHarness(testFallConfig())
	ctx := context.Background()

	h.detector.Process(ctx, sampleAt(0), upright(1.0))
	assert.Equal(t, FallPotential, h.detector.Process(ctx, sampleAt(1), upright(1.5)))
	assert.NotNil(t, h.detector.Candidate())

	for i := 2; i < 30; i++ {
		h.detector.Process(ctx, sampleAt(i), upright(1.5))
	}
	assert.Nil(t, h.detector.Candidate())
	assert.Equal(t, 0, h.alerter.count())
	assert.Equal(t, 1, h.indicator.count("warning"))
	assert.Equal(t, 1, h.indicator.count("stop"))
	assert.Empty(t, h.sink.records)
}

func TestFallDetector_FreeFallNeedsNoHistory(t *testing.T) {
	h := newFallHarness(testFallConfig())

	out := h.detector.Process(context.Background(), sampleAt(0), upright(0.2))
	assert.Equal(t, FallPotential, out)
	assert.Equal(t, models.FallReasonFreeFall, h.detector.Candidate().Reason)
	assert.Equal(t, "Free fall detected (magnitude: 0.200)", h.detector.Candidate().Detail)
}

func TestFallDetector_SuddenOrientationChange(t *testing.T) {
	h := newFallHarness(testFallConfig())
	ctx := context.Background()

	h.detector.Process(ctx, sampleAt(0), models.MotionState{Magnitude: 1.0, PitchDeg: 5, RollDeg: 5})

	// 小幅倾斜但未超过 70°：不触发
	assert.Equal(t, FallNone, h.detector.Process(ctx, sampleAt(1), models.MotionState{Magnitude: 1.0, PitchDeg: 60, RollDeg: 5}))

	// |roll| > 70 且变化 > 45
	out := h.detector.Process(ctx, sampleAt(2), models.MotionState{Magnitude: 1.0, PitchDeg: 60, RollDeg: 85})
	assert.Equal(t, FallPotential, out)
	assert.Equal(t, models.FallReasonSuddenOrientationChange, h.detector.Candidate().Reason)

	// 已经躺倒但角度不再变化：取消
	assert.Equal(t, FallCancelled, h.detector.Process(ctx, sampleAt(3), models.MotionState{Magnitude: 1.0, PitchDeg: 60, RollDeg: 85}))
}

func TestFallDetector_CooldownDelaysSecondConfirmation(t *testing.T) {
	cfg := testFallConfig()
	h := newFallHarness(cfg)
	ctx := context.Background()

	var confirmed []time.Time
	// 持续失重 60s
	for i := 0; i <= 600; i++ {
		if h.detector.Process(ctx, sampleAt(i), upright(0.2)) == FallConfirmed {
			confirmed = append(confirmed, sampleAt(i))
		}
	}

	require.Len(t, confirmed, 2)
	assert.Equal(t, 5*time.Second, confirmed[0].Sub(sampleAt(0)))
	assert.Equal(t, cfg.Cooldown, confirmed[1].Sub(confirmed[0]))
}

func TestFallDetector_NeverConfirmsWithinCooldown(t *testing.T) {
	cfg := testFallConfig()
	cfg.Cooldown = 20 * time.Second
	h := newFallHarness(cfg)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	var last time.Time
	confirmations := 0
	for i := 0; i < 20000; i++ {
		st := models.MotionState{
			Magnitude: rng.Float64() * 1.5,
			PitchDeg:  rng.Float64()*180 - 90,
			RollDeg:   rng.Float64()*180 - 90,
		}
		// 间歇性保持稳定，制造取消路径
		if (i/50)%3 == 0 {
			st = upright(1.0)
		}
		now := sampleAt(i)
		if h.detector.Process(ctx, now, st) == FallConfirmed {
			if !last.IsZero() {
				require.GreaterOrEqual(t, now.Sub(last), cfg.Cooldown)
			}
			last = now
			confirmations++
		}
	}
	assert.Equal(t, confirmations, h.alerter.count())
}

func TestFallDetector_RestoreLastConfirmed(t *testing.T) {
	cfg := testFallConfig()
	h := newFallHarness(cfg)
	ctx := context.Background()

	h.detector.RestoreLastConfirmed(sampleAt(0))
	h.detector.RestoreLastConfirmed(sampleAt(-100))
	assert.Equal(t, sampleAt(0), h.detector.LastConfirmed())

	confirmed := -1
	for i := 0; i <= 400; i++ {
		if h.detector.Process(ctx, sampleAt(i), upright(0.2)) == FallConfirmed {
			confirmed = i
			break
		}
	}
	// 冷却 30s 结束后才确认
	assert.Equal(t, 300, confirmed)
}

func TestFallDetector_DeliveryFailureStillPersists(t *testing.T) {
	h := newFallHarness(testFallConfig())
	h.alerter.fail = true
	ctx := context.Background()

	for i := 0; i <= 50; i++ {
		h.detector.Process(ctx, sampleAt(i), upright(0.2))
	}
	assert.Equal(t, 1, h.alerter.count())
	assert.Len(t, h.sink.kinds(models.RecordFall), 1)
	assert.False(t, h.detector.LastConfirmed().IsZero())
}

type stalledSink struct{}

// AppendRow 阻塞到 ctx 结束
func (stalledSink) AppendRow(ctx context.Context, _ models.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(8 * time.Second):
		return nil
	}
}

func TestFallDetector_StalledPersistenceIsBounded(t *testing.T) {
	alerter := &fakeAlerter{}
	sink := repository.NewMultiSink(50*time.Millisecond, stalledSink{})
	d := NewFallDetector(testFallConfig(), "dev-1", alerter, &fakeIndicator{}, sink, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NotEqual(t, FallConfirmed, d.Process(ctx, sampleAt(i), upright(0.3)))
	}

	start := time.Now()
	require.Equal(t, FallConfirmed, d.Process(ctx, sampleAt(50), upright(0.3)))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, alerter.count())
}
