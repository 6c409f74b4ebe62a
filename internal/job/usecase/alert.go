package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultAlertChannel is the redis channel dead-letter alerts are published on.
const DefaultAlertChannel = "publishq:alerts"

// Publisher is the part of *redis.Client used to publish alerts.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// DeadLetterAlert is the message published when a queue crosses its threshold.
type DeadLetterAlert struct {
	Kind      string    `json:"kind"`
	Queue     string    `json:"queue"`
	Count     int64     `json:"count"`
	Threshold int64     `json:"threshold"`
	RaisedAt  time.Time `json:"raised_at"`
}

// RedisAlertNotifier publishes dead-letter alerts on a redis channel for
// whatever paging integration subscribes to it.
type RedisAlertNotifier struct {
	publisher Publisher
	channel   string
}

// NewRedisAlertNotifier creates a RedisAlertNotifier. An empty channel uses DefaultAlertChannel.
func NewRedisAlertNotifier(publisher Publisher, channel string) *RedisAlertNotifier {
	if channel == "" {
		channel = DefaultAlertChannel
	}
	return &RedisAlertNotifier{publisher: publisher, channel: channel}
}

// NotifyDeadLetterThreshold publishes a DeadLetterAlert.
func (n *RedisAlertNotifier) NotifyDeadLetterThreshold(ctx context.Context, queue string, count, threshold int64) error {
	message, err := json.Marshal(DeadLetterAlert{
		Kind:      "dead_letter_threshold",
		Queue:     queue,
		Count:     count,
		Threshold: threshold,
		RaisedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, n.channel, message).Err()
}
