package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRedisCacheInvalidateTag(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, addr, "", 0, "test-"+uuid.NewString())
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "p1", "tee", time.Minute, "products"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got string
	if err := c.Get(ctx, "p1", &got); err != nil || got != "tee" {
		t.Fatalf("Get: %v %q", err, got)
	}
	n, err := c.InvalidateTag(ctx, "products")
	if err != nil || n != 1 {
		t.Fatalf("InvalidateTag: n=%d err=%v", n, err)
	}
	if err := c.Get(ctx, "p1", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestRedisCacheSetIfGeneration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, addr, "", 0, "test-"+uuid.NewString())
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer c.Close()

	gen, err := c.Generation(ctx, "products")
	if err != nil || gen != 0 {
		t.Fatalf("Generation: gen=%d err=%v", gen, err)
	}
	if _, err := c.InvalidateTag(ctx, "products"); err != nil {
		t.Fatalf("InvalidateTag: %v", err)
	}
	stored, err := c.SetIfGeneration(ctx, "p1", "stale", time.Minute, "products", gen)
	if err != nil || stored {
		t.Fatalf("expected stale write dropped, stored=%v err=%v", stored, err)
	}
	stored, err = c.SetIfGeneration(ctx, "p1", "fresh", time.Minute, "products", gen+1)
	if err != nil || !stored {
		t.Fatalf("expected fresh write, stored=%v err=%v", stored, err)
	}
	if n, err := c.InvalidateTag(ctx, "products"); err != nil || n != 1 {
		t.Fatalf("InvalidateTag: n=%d err=%v", n, err)
	}
}
