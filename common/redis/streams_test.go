package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestStreams_PublishAndRead(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "forca:plans", "planner"))
	// second call must tolerate BUSYGROUP
	require.NoError(t, CreateConsumerGroup(ctx, client, "forca:plans", "planner"))

	_, err := PublishJSONToStream(ctx, client, "forca:plans", 0, map[string]any{"treinamento_id": "t-1"})
	require.NoError(t, err)

	msgs, err := ReadFromStream(ctx, client, "forca:plans", "planner", "c1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	data, ok := msgs[0].Text("data")
	require.True(t, ok)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, "t-1", payload["treinamento_id"])

	require.NoError(t, Ack(ctx, client, "forca:plans", "planner", msgs[0].ID))
}

func TestStreams_MaxLen(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := PublishJSONToStream(ctx, client, "forca:plan:reports", 2, map[string]any{"n": i})
		require.NoError(t, err)
	}

	n, err := client.XLen(ctx, "forca:plan:reports").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestReadFromStream_NothingNew(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, CreateConsumerGroup(ctx, client, "forca:plans", "planner"))

	msgs, err := ReadFromStream(ctx, client, "forca:plans", "planner", "c1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
