package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists session state in Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(sid, key string) string {
	return "sess:" + sid + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, redisKey(sid, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	// Refresh the TTL on read so active sessions stay alive.
	if s.ttl > 0 {
		s.client.Expire(ctx, redisKey(sid, key), s.ttl)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	if err := s.client.Set(ctx, redisKey(sid, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid, key string) error {
	if err := s.client.Del(ctx, redisKey(sid, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
