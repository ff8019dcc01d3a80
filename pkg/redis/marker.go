package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker records ids that have been fully handled, each for a limited time.
// It only short-circuits repeats; callers must still be safe to run twice.
type Marker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewMarker stores marks under prefix+id for ttl.
func NewMarker(client redis.UniversalClient, prefix string, ttl time.Duration) *Marker {
	if client == nil {
		panic("redis: client is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Marker{client: client, prefix: prefix, ttl: ttl}
}

// Seen reports whether id has been marked.
func (m *Marker) Seen(ctx context.Context, id string) (bool, error) {
	n, err := m.client.Exists(ctx, m.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("check mark %s: %w", id, err)
	}
	return n > 0, nil
}

// Mark records id. Marking twice refreshes nothing and is not an error.
func (m *Marker) Mark(ctx context.Context, id string) error {
	err := m.client.SetArgs(ctx, m.prefix+id, time.Now().Unix(), redis.SetArgs{Mode: "NX", TTL: m.ttl}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("mark %s: %w", id, err)
	}
	return nil
}
