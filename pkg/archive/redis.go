package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caseflow/caseflow/pkg/config"
)

const redisKeyPrefix = "caseflow:reports:"

// redisTimeout bounds every Redis operation.
const redisTimeout = 5 * time.Second

// RedisBackend stores reports in Redis for low-latency access.
type RedisBackend struct {
	cfg    config.RedisArchiveConfig
	client *redis.Client
}

// NewRedisBackend creates a new Redis report backend.
func NewRedisBackend(cfg config.RedisArchiveConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  redisTimeout,
		WriteTimeout: redisTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis archive: connect: %w", err)
	}

	return &RedisBackend{cfg: cfg, client: client}, nil
}

func (b *RedisBackend) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (b *RedisBackend) indexKey() string {
	return redisKeyPrefix + "index"
}

// Save persists a report to Redis. The key and the session index are written
// in one pipeline so List never sees a half-saved report.
func (b *RedisBackend) Save(ctx context.Context, r *Report) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis archive: marshal report: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, b.key(r.SessionID), data, b.cfg.TTL)
	pipe.SAdd(ctx, b.indexKey(), r.SessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis archive: save report: %w", err)
	}
	return nil
}

// Load retrieves a report from Redis.
func (b *RedisBackend) Load(ctx context.Context, sessionID string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis archive: load report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("redis archive: unmarshal report: %w", err)
	}
	return &r, nil
}

// Delete removes a report from Redis.
func (b *RedisBackend) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	pipe := b.client.Pipeline()
	pipe.Del(ctx, b.key(sessionID))
	pipe.SRem(ctx, b.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the session IDs of all stored reports. Entries whose key
// expired via TTL are pruned from the index as they are discovered.
func (b *RedisBackend) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	ids, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis archive: list reports: %w", err)
	}

	var live []string
	for _, id := range ids {
		exists, err := b.client.Exists(ctx, b.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis archive: list reports: %w", err)
		}
		if exists == 0 {
			b.client.SRem(ctx, b.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Name returns "redis".
func (b *RedisBackend) Name() string {
	return "redis"
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Ping checks the Redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return b.client.Ping(ctx).Err()
}
