package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore persists sessions as JSON values with a TTL, for multi-node runs
// where a user may reconnect through a different gateway instance.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func sessionKey(id string) string {
	return "session:" + id
}

func (r *redisStore) Create(ctx context.Context, s *Session) error {
	return r.write(ctx, s)
}

func (r *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err = json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *redisStore) Update(ctx context.Context, s *Session) error {
	exists, err := r.client.Exists(ctx, sessionKey(s.ID)).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return r.write(ctx, s)
}

func (r *redisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (r *redisStore) Close() error {
	return r.client.Close()
}

func (r *redisStore) write(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err = r.client.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}
