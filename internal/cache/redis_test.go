package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Requires Redis on localhost:6379; skipped otherwise.
const testRedisAddr = "localhost:6379"

func setupRedisCache(t *testing.T) (*RedisCache, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { client.Close() })

	return NewRedis(client, "roomchat-test:invite:"), client
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, client := setupRedisCache(t)

	if err := cache.Set(ctx, "abc12345", "room-1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	t.Cleanup(func() { client.Del(ctx, "roomchat-test:invite:abc12345") })

	ttl, err := client.TTL(ctx, "roomchat-test:invite:abc12345").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, %v", ttl, err)
	}

	got, err := cache.Get(ctx, "abc12345")
	if err != nil || got != "room-1" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	existed, err := cache.Delete(ctx, "abc12345")
	if err != nil || !existed {
		t.Errorf("Delete() = %v, %v", existed, err)
	}
	if _, err := cache.Get(ctx, "abc12345"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after delete error = %v, want ErrMiss", err)
	}
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, _ := setupRedisCache(t)

	if err := cache.Set(ctx, "expiring", "room-1", 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)

	if _, err := cache.Get(ctx, "expiring"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after ttl error = %v, want ErrMiss", err)
	}
}
