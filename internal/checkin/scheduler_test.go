package checkin

import (
	"context"
	"testing"
	"time"

	"wisefido-guardian/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePrompter struct {
	prompts [][2]string
	clears  int
}

func (f *fakePrompter) Prompt(line1, line2 string) { f.prompts = append(f.prompts, [2]string{line1, line2}) }
func (f *fakePrompter) Clear()                     { f.clears++ }

type fakeInteractions struct {
	last time.Time
}

func (f *fakeInteractions) LastInteraction() time.Time { return f.last }

type alwaysWake bool

func (w alwaysWake) IsWake(time.Time) bool { return bool(w) }

type fakeAlerter struct {
	messages []string
}

func (f *fakeAlerter) Send(_ context.Context, message string) bool {
	f.messages = append(f.messages, message)
	return true
}

type fakeCounter struct {
	completed, missed int
}

func (f *fakeCounter) RecordCheckin(_ context.Context, _ time.Time, completed bool) {
	if completed {
		f.completed++
	} else {
		f.missed++
	}
}

type fakeSink struct {
	records []models.Record
}

func (f *fakeSink) AppendRow(_ context.Context, r models.Record) error {
	f.records = append(f.records, r)
	return nil
}

type harness struct {
	s            *Scheduler
	prompter     *fakePrompter
	interactions *fakeInteractions
	alerter      *fakeAlerter
	counter      *fakeCounter
	sink         *fakeSink
}

var start = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newHarness(wake bool) *harness {
	h := &harness{
		prompter:     &fakePrompter{},
		interactions: &fakeInteractions{},
		alerter:      &fakeAlerter{},
		counter:      &fakeCounter{},
		sink:         &fakeSink{},
	}
	h.s = NewScheduler(Config{Interval: 4 * time.Hour, Timeout: 300 * time.Second},
		"dev-1", alwaysWake(wake), h.prompter, h.interactions, h.alerter, h.counter, h.sink, start, zap.NewNop())
	return h
}

func TestScheduler_PromptsAfterInterval(t *testing.T) {
	h := newHarness(true)
	ctx := context.Background()

	snap := h.s.Tick(ctx, start.Add(4*time.Hour-time.Second))
	assert.False(t, snap.WaitingForCheckin)
	assert.Equal(t, 1, snap.NextCheckinInSec)

	snap = h.s.Tick(ctx, start.Add(4*time.Hour))
	assert.True(t, snap.WaitingForCheckin)
	assert.Equal(t, 0, snap.NextCheckinInSec)
	require.Len(t, h.prompter.prompts, 1)
	assert.Equal(t, [2]string{"CHECK-IN TIME!", "Press 1 or 2"}, h.prompter.prompts[0])
	require.Len(t, h.alerter.messages, 1)
	assert.Contains(t, h.alerter.messages[0], "SCHEDULED CHECK-IN")
	assert.Equal(t, start.Add(4*time.Hour), h.s.State().PromptTime)
}

func TestScheduler_MissedIncrementsExactlyOnce(t *testing.T) {
	h := newHarness(true)
	ctx := context.Background()
	promptAt := start.Add(4 * time.Hour)

	h.s.Tick(ctx, promptAt)
	for sec := 10; sec <= 300; sec += 10 {
		h.s.Tick(ctx, promptAt.Add(time.Duration(sec)*time.Second))
	}
	assert.True(t, h.s.State().Waiting)

	missAt := promptAt.Add(310 * time.Second)
	snap := h.s.Tick(ctx, missAt)
	assert.False(t, snap.WaitingForCheckin)

	for sec := 320; sec < 3600; sec += 10 {
		h.s.Tick(ctx, promptAt.Add(time.Duration(sec)*time.Second))
	}

	st := h.s.State()
	assert.False(t, st.Waiting)
	assert.Equal(t, 1, st.MissedCount)
	assert.Equal(t, 0, st.CompletedCount)
	assert.Equal(t, 1, h.counter.missed)
	assert.Equal(t, missAt, h.s.LastCheckin())
	assert.Equal(t, 1, h.prompter.clears)

	require.Len(t, h.alerter.messages, 2)
	assert.Equal(t, "🚨 MISSED CHECK-IN ALERT: No response to scheduled check-in for 5 minutes. Please check on the elderly person immediately!", h.alerter.messages[1])
	require.Len(t, h.sink.records, 1)
	assert.Equal(t, models.EventTypeMissedCheckin, h.sink.records[0].Alarm.EventType)
}

func TestScheduler_CompletedByInteraction(t *testing.T) {
	h := newHarness(true)
	ctx := context.Background()
	promptAt := start.Add(4 * time.Hour)

	// 提示之前的按键不算
	h.interactions.last = promptAt.Add(-time.Minute)
	h.s.Tick(ctx, promptAt)
	h.s.Tick(ctx, promptAt.Add(10*time.Second))
	assert.True(t, h.s.State().Waiting)

	h.interactions.last = promptAt.Add(15 * time.Second)
	doneAt := promptAt.Add(20 * time.Second)
	h.s.Tick(ctx, doneAt)

	st := h.s.State()
	assert.False(t, st.Waiting)
	assert.Equal(t, 1, st.CompletedCount)
	assert.Equal(t, 0, st.MissedCount)
	assert.Equal(t, 1, h.counter.completed)
	assert.Equal(t, doneAt, h.s.LastCheckin())
	assert.Len(t, h.alerter.messages, 1)
	assert.Empty(t, h.sink.records)

	// 下一次提示在 Interval 之后
	assert.False(t, h.s.Tick(ctx, doneAt.Add(4*time.Hour-time.Second)).WaitingForCheckin)
	assert.True(t, h.s.Tick(ctx, doneAt.Add(4*time.Hour)).WaitingForCheckin)
}

func TestScheduler_NoPromptDuringSleep(t *testing.T) {
	h := newHarness(false)
	ctx := context.Background()

	snap := h.s.Tick(ctx, start.Add(10*time.Hour))
	assert.False(t, snap.WaitingForCheckin)
	assert.Equal(t, 0, snap.NextCheckinInSec)
	assert.Empty(t, h.prompter.prompts)
}

func TestScheduler_RestoreLastCheckin(t *testing.T) {
	h := newHarness(true)
	restored := start.Add(2 * time.Hour)
	h.s.RestoreLastCheckin(restored)
	h.s.RestoreLastCheckin(start)
	assert.Equal(t, restored, h.s.LastCheckin())

	assert.False(t, h.s.Tick(context.Background(), start.Add(5*time.Hour)).WaitingForCheckin)
	assert.True(t, h.s.Tick(context.Background(), restored.Add(4*time.Hour)).WaitingForCheckin)
}
