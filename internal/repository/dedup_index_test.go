package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"SentiFlow/pkg/cache"
)

func TestMemoryDedupIndex(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	idx := NewCacheDedupIndex(mc)
	ctx := context.Background()

	seen, err := idx.Seen(ctx, "abc", time.Minute)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatalf("first sighting should not be seen")
	}

	seen, err = idx.Seen(ctx, "abc", time.Minute)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if !seen {
		t.Fatalf("second sighting within horizon should be seen")
	}
}

func TestRedisDedupIndexHorizonExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("miniredis port: %v", err)
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(mr.Host()),
		cache.WithRedisPort(port),
	)
	if err != nil {
		t.Fatalf("redis cache: %v", err)
	}
	defer rc.Close()

	idx := NewCacheDedupIndex(rc)
	ctx := context.Background()

	if seen, _ := idx.Seen(ctx, "item-1", time.Second); seen {
		t.Fatalf("first sighting should not be seen")
	}
	if seen, _ := idx.Seen(ctx, "item-1", time.Second); !seen {
		t.Fatalf("duplicate within horizon should be seen")
	}

	mr.FastForward(2 * time.Second)

	if seen, _ := idx.Seen(ctx, "item-1", time.Second); seen {
		t.Fatalf("id past the horizon should be forgotten")
	}
}
