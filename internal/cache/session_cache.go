package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// SessionCache keeps the assembled quiz session status view in Redis for a
// short TTL. Submissions delete the entry so stale progress is never served.
type SessionCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSessionCache(client *redisv9.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &SessionCache{client: client, ttl: ttl}
}

// Get unmarshals the cached status view into dest. The second return is
// false on a cache miss.
func (c *SessionCache) Get(ctx context.Context, sessionID uint, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get session status failed: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("unmarshal cached session status failed: %w", err)
	}
	return true, nil
}

func (c *SessionCache) Set(ctx context.Context, sessionID uint, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal session status cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(sessionID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session status failed: %w", err)
	}
	return nil
}

func (c *SessionCache) Delete(ctx context.Context, sessionID uint) error {
	if err := c.client.Del(ctx, c.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session status failed: %w", err)
	}
	return nil
}

func (c *SessionCache) key(sessionID uint) string {
	return fmt.Sprintf("quiz:session:%d", sessionID)
}
