package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"babelbridge/internal/models"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "babelbridge:session:"

// RedisSnapshotter persists session snapshots in Redis with a TTL matching
// the session max age, so restarts don't lose in-flight conversations.
type RedisSnapshotter struct {
	client *redis.Client
	ttl    time.Duration
}

type snapshotPayload struct {
	Session  models.Session    `json:"session"`
	Messages []*models.Message `json:"messages"`
}

// NewRedisSnapshotter connects to Redis and verifies the connection.
func NewRedisSnapshotter(redisURL string, ttl time.Duration) (*RedisSnapshotter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSnapshotter{client: client, ttl: ttl}, nil
}

// Save writes the session and its messages as one JSON value.
func (r *RedisSnapshotter) Save(ctx context.Context, session models.Session, messages []*models.Message) error {
	payload, err := json.Marshal(snapshotPayload{Session: session, Messages: messages})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKeyPrefix+session.SessionID, payload, r.ttl).Err()
}

// Load reads a snapshot back. A missing key is a plain miss, not an error;
// brand-new sessions have no snapshot yet.
func (r *RedisSnapshotter) Load(ctx context.Context, sessionID string) (*models.Session, []*models.Message, error) {
	data, err := r.client.Get(ctx, snapshotKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &payload.Session, payload.Messages, nil
}

// Delete removes a session's snapshot.
func (r *RedisSnapshotter) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, snapshotKeyPrefix+sessionID).Err()
}

// Close releases the underlying Redis connection pool.
func (r *RedisSnapshotter) Close() error {
	return r.client.Close()
}
