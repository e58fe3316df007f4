package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSeenAndMark(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
		return
	}
	defer rdb.Close()

	s := NewStore(rdb, time.Minute)
	orderID := "idem-test-order"
	defer rdb.Del(ctx, key(orderID))

	seen, err := s.Seen(ctx, orderID)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatal("fresh order must not be seen")
	}

	if err := s.Mark(ctx, orderID); err != nil {
		t.Fatalf("mark: %v", err)
	}

	seen, err = s.Seen(ctx, orderID)
	if err != nil {
		t.Fatalf("seen after mark: %v", err)
	}
	if !seen {
		t.Fatal("marked order must be seen")
	}
}
