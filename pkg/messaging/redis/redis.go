package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigmarp/medical-api/pkg/messaging"
)

type Config struct {
	URL          string
	Channel      string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

// Publisher fans domain events out on a Redis pub/sub channel.
type Publisher struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

var _ messaging.Publisher = (*Publisher)(nil)

func NewPublisher(ctx context.Context, config Config) (*Publisher, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pooling
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.RetryBackoff > 0 {
		opts.MinRetryBackoff = config.RetryBackoff
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	channel := config.Channel
	if channel == "" {
		channel = "sigma.events"
	}
	return &Publisher{client: client, channel: channel, now: time.Now}, nil
}

func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := encode(eventType, payload, p.now())
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, body).Err()
}

func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

func encode(eventType string, payload interface{}, at time.Time) ([]byte, error) {
	body, err := json.Marshal(messaging.Message{Type: eventType, OccurredAt: at.UTC(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return body, nil
}
