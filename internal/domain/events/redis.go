package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Origin string            `json:"origin"`
	Event  FormStatusUpdated `json:"event"`
}

// RedisRelay publishes to the local broker and to a Redis channel so that
// subscribers connected to other instances see the event too. Messages that
// originated here are ignored on the way back in.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   *Broker
	origin  string
}

func NewRedisRelay(client *redis.Client, channel string, local *Broker) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, local: local, origin: uuid.NewString()}
}

// Connect builds a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisRelay) Publish(ctx context.Context, event FormStatusUpdated) {
	r.local.Publish(ctx, event)

	payload, err := json.Marshal(envelope{Origin: r.origin, Event: event})
	if err != nil {
		slog.Warn("encode form status event failed", "err", err)
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		slog.Warn("redis publish failed", "channel", r.channel, "err", err)
	}
}

// Run forwards remote events into the local broker until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		slog.Warn("decode form status event failed", "err", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.local.Publish(ctx, env.Event)
}
