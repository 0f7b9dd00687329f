package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[int64, string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int64, string](maxSize, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get(1); ok {
		t.Fatal("Get on empty cache should miss")
	}
	c.Set(1, "uno")
	got, ok := c.Get(1)
	if !ok || got != "uno" {
		t.Fatalf("Get(1) = (%q, %v), want (uno, true)", got, ok)
	}

	c.Set(1, "otra")
	if got, _ := c.Get(1); got != "otra" {
		t.Fatalf("Get(1) after overwrite = %q", got)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set(1, "a")
	c.Set(2, "b")
	c.Get(1) // 2 is now the oldest
	c.Set(3, "c")

	if _, ok := c.Get(2); ok {
		t.Fatal("key 2 should have been evicted")
	}
	for _, k := range []int64{1, 3} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("key %d should still be cached", k)
		}
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Set(1, "a")
	c.Set(2, "b")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set(3, "c")
	clock.t = clock.t.Add(45 * time.Second)

	if _, ok := c.Get(1); ok {
		t.Fatal("expired entry should miss")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)
	c.Set(7, "x")
	c.Delete(7)
	c.Delete(8)
	if _, ok := c.Get(7); ok {
		t.Fatal("deleted key should miss")
	}
}

func TestManager_StopAfterCancel(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)
	m := NewManager()
	m.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	m.StartCleanup(ctx, time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return")
	}
}
