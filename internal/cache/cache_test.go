package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_Basic(t *testing.T) {
	c := New[string, string]()
	defer c.Close()

	c.Set("key1", "value1")

	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected 'value1', got %v", value)
	}

	if _, exists = c.Get("nonexistent"); exists {
		t.Error("Expected nonexistent key to not exist")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := NewWithConfig[string, bool](100, time.Hour, time.Hour)
	defer c.Close()

	c.SetWithExpiry("expiring", true, 30*time.Millisecond)

	if value, exists := c.Get("expiring"); !exists || !value {
		t.Error("Expected item to exist immediately after setting")
	}

	time.Sleep(60 * time.Millisecond)

	if _, exists := c.Get("expiring"); exists {
		t.Error("Expected item to be expired")
	}
	if c.Size() != 0 {
		t.Errorf("Expected expired item to be removed on read, size %d", c.Size())
	}
}

func TestCache_SizeLimit(t *testing.T) {
	c := NewWithConfig[string, int](3, time.Hour, time.Hour)
	defer c.Close()

	c.SetWithExpiry("first", 1, time.Minute)
	c.Set("second", 2)
	c.Set("third", 3)
	c.Set("fourth", 4)

	if c.Size() != 3 {
		t.Errorf("Expected size 3, got %d", c.Size())
	}
	if _, exists := c.Get("first"); exists {
		t.Error("Expected the entry closest to expiry to be evicted")
	}
	if _, exists := c.Get("fourth"); !exists {
		t.Error("Expected newest entry to be present")
	}

	c.Set("fourth", 40)
	if c.Size() != 3 {
		t.Errorf("Overwriting a key should not evict, size %d", c.Size())
	}
}

func TestCache_EvictsExpiredFirst(t *testing.T) {
	c := NewWithConfig[int, int](2, time.Hour, time.Hour)
	defer c.Close()

	c.SetWithExpiry(1, 1, time.Nanosecond)
	c.Set(2, 2)
	time.Sleep(time.Millisecond)
	c.Set(3, 3)

	if _, exists := c.Get(2); !exists {
		t.Error("Expected live entry to survive eviction")
	}
	if _, exists := c.Get(3); !exists {
		t.Error("Expected new entry to be stored")
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[string, int]()
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, exists := c.Get("a"); exists {
		t.Error("Expected deleted key to be gone")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", c.Size())
	}
}

func TestCache_Stats(t *testing.T) {
	c := NewWithConfig[string, int](10, time.Hour, time.Hour)
	defer c.Close()

	c.Set("live", 1)
	c.SetWithExpiry("dead", 2, time.Nanosecond)
	time.Sleep(time.Millisecond)

	stats := c.GetStats()
	if stats.Size != 2 {
		t.Errorf("Expected size 2, got %d", stats.Size)
	}
	if stats.MaxSize != 10 {
		t.Errorf("Expected max size 10, got %d", stats.MaxSize)
	}
	if stats.DefaultExpiry != time.Hour {
		t.Errorf("Expected default expiry 1h, got %v", stats.DefaultExpiry)
	}
	if stats.ExpiredItems != 1 {
		t.Errorf("Expected 1 expired item, got %d", stats.ExpiredItems)
	}
}

func TestCache_Cleanup(t *testing.T) {
	c := NewWithConfig[string, int](10, time.Hour, 10*time.Millisecond)
	defer c.Close()

	c.SetWithExpiry("short", 1, 5*time.Millisecond)
	c.Set("long", 2)

	deadline := time.Now().Add(time.Second)
	for c.Size() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if c.Size() != 1 {
		t.Errorf("Expected cleanup to leave 1 item, got %d", c.Size())
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := New[string, int]()
	c.Close()
	c.Close()

	c.Set("still", 1)
	if _, exists := c.Get("still"); !exists {
		t.Error("Cache should remain usable after Close")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := NewWithConfig[string, int](1000, time.Hour, time.Hour)
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-%d", g, i)
				c.Set(key, i)
				if v, ok := c.Get(key); !ok || v != i {
					t.Errorf("Expected %s=%d, got %d (exists=%v)", key, i, v, ok)
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Size() != 1000 {
		t.Errorf("Expected 1000 items, got %d", c.Size())
	}
}
