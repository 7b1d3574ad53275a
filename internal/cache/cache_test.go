package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestKey_Stable(t *testing.T) {
	a := Key("doc-1", "hash-v1", "abc")
	b := Key("doc-1", "hash-v1", "abc")
	if a != b {
		t.Error("expected stable key")
	}
	if !strings.HasPrefix(a, "veracity:v1:") {
		t.Errorf("unexpected prefix in %s", a)
	}
	// Part boundaries matter
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("expected distinct keys for distinct parts")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get(ctx, "missing"); found {
		t.Error("expected miss")
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	val, found := c.Get(ctx, "k")
	if !found || string(val) != "v" {
		t.Errorf("expected hit with v, got %q %v", val, found)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
	_ = c.Delete(ctx, "k")
	if _, found := c.Get(ctx, "k"); found {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewDiskCache(t.TempDir(), time.Hour)

	key := Key("doc", "model")
	if err := c.Set(ctx, key, []byte("vectors"), 0); err != nil {
		t.Fatal(err)
	}
	val, found := c.Get(ctx, key)
	if !found || string(val) != "vectors" {
		t.Errorf("expected hit, got %q %v", val, found)
	}

	if err := c.Set(ctx, "expired", []byte("x"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, found := c.Get(ctx, "expired"); found {
		t.Error("expected expired entry to miss")
	}

	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestLayeredCache_PromotesHits(t *testing.T) {
	ctx := context.Background()
	memory := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	layered := NewLayeredCache(memory, disk)

	_ = disk.Set(ctx, "k", []byte("from-disk"), 0)

	val, found := layered.Get(ctx, "k")
	if !found || string(val) != "from-disk" {
		t.Fatalf("expected disk hit, got %q %v", val, found)
	}
	if val, found := memory.Get(ctx, "k"); !found || string(val) != "from-disk" {
		t.Error("expected value promoted to memory")
	}

	_ = layered.Set(ctx, "both", []byte("x"), 0)
	if _, found := disk.Get(ctx, "both"); !found {
		t.Error("expected Set to reach disk")
	}

	_ = layered.Delete(ctx, "both")
	if _, found := layered.Get(ctx, "both"); found {
		t.Error("expected miss after delete")
	}
}
