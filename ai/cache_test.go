package ai

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheHitAndExpiry(t *testing.T) {
	c := newResponseCache(time.Hour, 100)
	base := time.Now()
	c.now = func() time.Time { return base }

	if _, ok := c.get("dave", "hello"); ok {
		t.Fatal("empty cache should miss")
	}
	c.put("dave", "hello", "hi there")
	if resp, ok := c.get("dave", "hello"); !ok || resp != "hi there" {
		t.Fatalf("expected hit, got %q ok=%v", resp, ok)
	}
	// distinct user misses
	if _, ok := c.get("alice", "hello"); ok {
		t.Fatal("cache keys should be per-user")
	}
	// one second past the TTL the entry is gone
	c.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	if _, ok := c.get("dave", "hello"); ok {
		t.Fatal("expired entry should miss")
	}
	if c.len() != 0 {
		t.Fatalf("expired entry not deleted, len=%d", c.len())
	}
}

func TestCacheEvictsOldestBeyondCap(t *testing.T) {
	c := newResponseCache(time.Hour, 3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		c.now = func() time.Time { return at }
		c.put("u", fmt.Sprintf("p%d", i), "r")
	}
	if c.len() != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", c.len())
	}
	c.now = func() time.Time { return base.Add(10 * time.Second) }
	if _, ok := c.get("u", "p0"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.get("u", "p4"); !ok {
		t.Fatal("newest entry should remain")
	}
}
