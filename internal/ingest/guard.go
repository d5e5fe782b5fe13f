package ingest

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// Guard is a single-flight lock per document id, so two ingest runs for the
// same document never overlap even if the task is delivered twice.
type Guard struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewGuard(client *redisv9.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Guard{client: client, ttl: ttl}
}

// Acquire reports whether this caller owns the document's ingest slot. The
// TTL bounds lock leakage when a worker dies mid-run.
func (g *Guard) Acquire(ctx context.Context, documentID uint) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(documentID), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire ingest lock failed: %w", err)
	}
	return ok, nil
}

func (g *Guard) Release(ctx context.Context, documentID uint) error {
	if err := g.client.Del(ctx, g.key(documentID)).Err(); err != nil {
		return fmt.Errorf("release ingest lock failed: %w", err)
	}
	return nil
}

func (g *Guard) key(documentID uint) string {
	return fmt.Sprintf("ingest:lock:%d", documentID)
}
