package cache

import (
	"testing"
	"time"
)

func TestLRU_SetAndGet(t *testing.T) {
	c := NewLRU[string](10, time.Minute)

	c.Set("a", "alpha")

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("Get(a) miss, want hit")
	}
	if got != "alpha" {
		t.Errorf("Get(a) = %s, want alpha", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) hit, want miss")
	}
}

func TestLRU_OverwriteKeepsSingleEntry(t *testing.T) {
	c := NewLRU[int](10, time.Minute)

	c.Set("a", 1)
	c.Set("a", 2)

	if got, _ := c.Get("a"); got != 2 {
		t.Errorf("Get(a) = %d, want 2", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a so b becomes the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b survived, want it evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a evicted, want it kept")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c evicted, want it kept")
	}
}

func TestLRU_ExpiredEntryIsAMiss(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) hit after expiry, want miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after expired read, want 0", c.Len())
	}
}

func TestLRU_Delete(t *testing.T) {
	c := NewLRU[int](10, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a") // deleting twice is a no-op

	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) hit after delete, want miss")
	}
}

func TestLRU_CleanExpired(t *testing.T) {
	c := NewLRU[int](10, 50*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(60 * time.Millisecond)
	c.Set("fresh", 3)

	dropped := c.CleanExpired()

	if dropped != 2 {
		t.Errorf("CleanExpired() = %d, want 2", dropped)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh evicted by CleanExpired, want it kept")
	}
}
