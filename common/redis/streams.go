package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamMessage is one entry read from a stream.
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]any
}

// Text returns a string field of the entry.
func (m StreamMessage) Text(field string) (string, bool) {
	v, ok := m.Values[field].(string)
	return v, ok
}

// PublishJSONToStream XADDs data as a JSON "data" field plus a unix
// "timestamp". maxLen > 0 caps the stream length.
func PublishJSONToStream(ctx context.Context, cmd redis.Cmdable, stream string, maxLen int64, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stream payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"data":      string(payload),
			"timestamp": time.Now().Unix(),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
	}
	return cmd.XAdd(ctx, args).Result()
}

// ReadFromStream reads entries never delivered to group. A block timeout
// with nothing new returns an empty slice.
func ReadFromStream(ctx context.Context, cmd redis.Cmdable, stream, group, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	streams, err := cmd.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return []StreamMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	messages := make([]StreamMessage, 0, count)
	for _, s := range streams {
		for _, msg := range s.Messages {
			messages = append(messages, StreamMessage{Stream: s.Stream, ID: msg.ID, Values: msg.Values})
		}
	}
	return messages, nil
}

func Ack(ctx context.Context, cmd redis.Cmdable, stream, group string, ids ...string) error {
	return cmd.XAck(ctx, stream, group, ids...).Err()
}

// CreateConsumerGroup creates group at the start of stream, creating the
// stream too. An existing group is not an error.
func CreateConsumerGroup(ctx context.Context, cmd redis.Cmdable, stream, group string) error {
	err := cmd.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", group, stream, err)
	}
	return nil
}
