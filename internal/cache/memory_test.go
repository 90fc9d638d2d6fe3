package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if err := c.Set(ctx, "k", map[string]int{"n": 1}, time.Minute, "products"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got map[string]int
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["n"] != 1 {
		t.Fatalf("unexpected value %v", got)
	}
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var dest string
	if err := c.Get(ctx, "absent", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := c.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	now = now.Add(2 * time.Second)
	if err := c.Get(ctx, "k", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryCacheInvalidateTagOnlyDropsTaggedKeys(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	_ = c.Set(ctx, "products:list", []string{"a"}, 0, "products")
	_ = c.Set(ctx, "products:tee", "tee", 0, "products")
	_ = c.Set(ctx, "other", "x", 0, "cart")

	n, err := c.InvalidateTag(ctx, "products")
	if err != nil {
		t.Fatalf("InvalidateTag: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 keys invalidated, got %d", n)
	}
	var dest interface{}
	if err := c.Get(ctx, "products:tee", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected tagged key gone, got %v", err)
	}
	if err := c.Get(ctx, "other", &dest); err != nil {
		t.Fatalf("expected untagged key kept, got %v", err)
	}
}

func TestMemoryCacheSetIfGenerationDropsStaleWrites(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	gen, err := c.Generation(ctx, "products")
	if err != nil || gen != 0 {
		t.Fatalf("Generation: gen=%d err=%v", gen, err)
	}
	if _, err := c.InvalidateTag(ctx, "products"); err != nil {
		t.Fatalf("InvalidateTag: %v", err)
	}

	stored, err := c.SetIfGeneration(ctx, "products:tee", "stale", 0, "products", gen)
	if err != nil || stored {
		t.Fatalf("expected stale write to be dropped, stored=%v err=%v", stored, err)
	}
	var dest string
	if err := c.Get(ctx, "products:tee", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	current, _ := c.Generation(ctx, "products")
	if current != 1 {
		t.Fatalf("expected generation 1, got %d", current)
	}
	stored, err = c.SetIfGeneration(ctx, "products:tee", "fresh", 0, "products", current)
	if err != nil || !stored {
		t.Fatalf("expected fresh write, stored=%v err=%v", stored, err)
	}
	if n, _ := c.InvalidateTag(ctx, "products"); n != 1 {
		t.Fatalf("expected fresh key to carry its tag, got %d", n)
	}
}
