package redis

import (
	"context"
	"testing"

	"wisefido-guardian/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	defer Close(client)

	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))

	id, err := PublishToStream(ctx, client, "guardian:event:stream", 0, map[string]interface{}{
		"event_type": "Fall",
		"duration":   30,
		"magnitude":  0.25,
		"confirmed":  true,
		"meta":       map[string]string{"k": "v"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "guardian:event:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "Fall", msgs[0].Values["event_type"])
	assert.Equal(t, "30", msgs[0].Values["duration"])
	assert.Equal(t, "0.25", msgs[0].Values["magnitude"])
	assert.Equal(t, "true", msgs[0].Values["confirmed"])
	assert.Equal(t, `{"k":"v"}`, msgs[0].Values["meta"])
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
