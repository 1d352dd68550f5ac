package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealersense/chat-api/internal/domain"
)

// LocalRelay delivers straight back into the hub that published. Used when the API
// runs as a single instance.
type LocalRelay struct {
	mu      sync.RWMutex
	deliver func(domain.Message)
}

func NewLocalRelay() *LocalRelay {
	return &LocalRelay{}
}

func (r *LocalRelay) Start(_ context.Context, deliver func(domain.Message)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver = deliver

	return nil
}

func (r *LocalRelay) Publish(_ context.Context, message domain.Message) error {
	r.mu.RLock()
	deliver := r.deliver
	r.mu.RUnlock()

	if deliver == nil {
		return ErrHubClosed
	}
	deliver(message)

	return nil
}

// RedisRelay fans stored messages out to every API instance through a Redis
// pub/sub channel. Each instance delivers what it receives to its own sockets.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, message domain.Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("r.client.Publish -> %w", err)
	}

	return nil
}

// Start subscribes before returning so no message published afterwards is missed.
func (r *RedisRelay) Start(ctx context.Context, deliver func(domain.Message)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("sub.Receive -> %w", err)
	}

	go func() {
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var message domain.Message
				if err := json.Unmarshal([]byte(msg.Payload), &message); err != nil {
					zap.L().Warn("dropping malformed relay payload", zap.String("channel", r.channel), zap.Error(err))
					continue
				}
				deliver(message)
			}
		}
	}()

	return nil
}
