package listener

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SourceRedis labels signals received over Redis pub/sub.
const SourceRedis = "redis"

// RedisSource forwards messages on a pub/sub channel to a Coalescer. Message
// payloads are ignored.
type RedisSource struct {
	Client    *redis.Client
	Channel   string
	Coalescer *Coalescer
	Logger    zerolog.Logger
}

// Run subscribes and forwards until ctx is done.
func (s *RedisSource) Run(ctx context.Context) error {
	sub := s.Client.Subscribe(ctx, s.Channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.Channel, err)
	}
	s.Logger.Info().Str("channel", s.Channel).Msg("cart_signal_subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-messages:
			if !ok {
				return nil
			}
			s.Coalescer.Signal(SourceRedis)
		}
	}
}

// Publish announces a cart change on channel.
func Publish(ctx context.Context, client *redis.Client, channel, payload string) error {
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
