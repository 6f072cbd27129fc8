package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"docupload/internal/config"
)

// redisQueue implements Queue on top of a Redis list (LPUSH producer,
// BRPOP consumer) so items are delivered oldest-first.
type redisQueue struct {
	client *redis.Client
	key    string
}

// NewRedis creates a Redis-backed queue and verifies connectivity with a ping.
func NewRedis(cfg config.RedisConfig) (Queue, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("redis host is required")
	}
	if cfg.QueueKey == "" {
		return nil, fmt.Errorf("redis queue key is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisQueue{client: client, key: cfg.QueueKey}, nil
}

// NewRedisWithClient wraps an existing client; used by tests.
func NewRedisWithClient(client *redis.Client, key string) Queue {
	return &redisQueue{client: client, key: key}
}

func (q *redisQueue) Enqueue(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("document id is required")
	}
	if err := q.client.LPush(ctx, q.key, id).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", id, err)
	}
	return nil
}

func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEmpty
		}
		return "", fmt.Errorf("dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return "", fmt.Errorf("dequeue: unexpected reply length %d", len(res))
	}
	return res[1], nil
}
