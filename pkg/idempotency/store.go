package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a fast-path duplicate cache keyed by order id. The durable
// fulfillments table is the real barrier; this only spares hot
// redeliveries a database round trip. Entries expire after the retention
// TTL, which should cover the broker's redelivery window.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(orderID string) string {
	return fmt.Sprintf("fulfilled:order:%s", orderID)
}

func (s *Store) Seen(ctx context.Context, orderID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key(orderID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Mark(ctx context.Context, orderID string) error {
	return s.rdb.Set(ctx, key(orderID), "1", s.ttl).Err()
}
