// Package session provides the short-lived, per-client key/value store that
// backs one-time confirmation markers.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis ping: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, entryKey(sessionID, key), value, ttl).Err()
}

// Get returns the stored value, or "" when the entry is absent.
func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	value, err := s.client.Get(ctx, entryKey(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetDel atomically reads and removes the entry. Of two racing callers exactly
// one observes the value; the other gets "".
func (s *RedisStore) GetDel(ctx context.Context, sessionID, key string) (string, error) {
	value, err := s.client.GetDel(ctx, entryKey(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID, key string) error {
	return s.client.Del(ctx, entryKey(sessionID, key)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func entryKey(sessionID, key string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, key)
}
