package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConsoleUI_TruncatesTo16Columns(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleUI(&buf)

	c.Prompt("Posture: Standing or Walking", "short")
	lines := c.lines
	assert.Equal(t, "Posture: Standin", lines[0])
	assert.Equal(t, "short", lines[1])
	assert.Contains(t, buf.String(), "|short           |")

	c.Clear()
	assert.Equal(t, [2]string{}, c.lines)
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey(" 3 \n")
	require.NoError(t, err)
	assert.Equal(t, 3, k)

	_, err = ParseKey("10")
	assert.Error(t, err)
	_, err = ParseKey("a")
	assert.Error(t, err)
}

func TestKeyQueue_ReadFromAndTimeout(t *testing.T) {
	q := NewKeyQueue(8, zap.NewNop())
	q.ReadFrom(strings.NewReader("1\nx\n5\n"))

	ctx := context.Background()
	k, ok := q.NextKey(ctx, 50*time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, 1, k)

	k, ok = q.NextKey(ctx, 50*time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, 5, k)

	_, ok = q.NextKey(ctx, 20*time.Millisecond)
	assert.False(t, ok)
}

func TestKeyQueue_DropsWhenFull(t *testing.T) {
	q := NewKeyQueue(1, zap.NewNop())
	assert.True(t, q.Push(1))
	assert.False(t, q.Push(2))
}

func TestKeyQueue_CancelledContext(t *testing.T) {
	q := NewKeyQueue(1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.NextKey(ctx, time.Minute)
	assert.False(t, ok)
}

type fakeSubscriber struct {
	handler func(topic string, payload []byte) error
	err     error
}

func (f *fakeSubscriber) Subscribe(_ string, _ byte, handler func(topic string, payload []byte) error) error {
	f.handler = handler
	return f.err
}

func TestKeyQueue_SubscribeRemote(t *testing.T) {
	q := NewKeyQueue(4, zap.NewNop())
	sub := &fakeSubscriber{}
	require.NoError(t, q.SubscribeRemote(sub, "guardian/dev-1/keys", 1))

	require.NoError(t, sub.handler("guardian/dev-1/keys", []byte("2")))
	assert.Error(t, sub.handler("guardian/dev-1/keys", []byte("hello")))

	k, ok := q.NextKey(context.Background(), 50*time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, 2, k)

	sub.err = errors.New("broker down")
	assert.Error(t, q.SubscribeRemote(sub, "t", 1))
}
