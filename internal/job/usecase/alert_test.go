package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	channel string
	message []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestRedisAlertNotifier_NotifyDeadLetterThreshold(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PublishesAlert", func(t *testing.T) {
		publisher := &fakePublisher{}
		notifier := NewRedisAlertNotifier(publisher, "")

		err := notifier.NotifyDeadLetterThreshold(ctx, "publish", 10, 10)

		require.NoError(t, err)
		assert.Equal(t, DefaultAlertChannel, publisher.channel)

		var alert DeadLetterAlert
		require.NoError(t, json.Unmarshal(publisher.message, &alert))
		assert.Equal(t, "dead_letter_threshold", alert.Kind)
		assert.Equal(t, "publish", alert.Queue)
		assert.Equal(t, int64(10), alert.Count)
		assert.Equal(t, int64(10), alert.Threshold)
		assert.False(t, alert.RaisedAt.IsZero())
	})

	t.Run("Error_PublishFails", func(t *testing.T) {
		publisher := &fakePublisher{err: errors.New("redis unavailable")}
		notifier := NewRedisAlertNotifier(publisher, "ops:alerts")

		err := notifier.NotifyDeadLetterThreshold(ctx, "publish", 10, 10)

		assert.ErrorContains(t, err, "redis unavailable")
		assert.Equal(t, "ops:alerts", publisher.channel)
	})
}
