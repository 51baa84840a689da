package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	t.Run("get missing key", func(t *testing.T) {
		store := NewMemoryStore()

		count, resetTime, exists := store.Get("missing")

		if exists {
			t.Error("expected key to not exist")
		}
		if count != 0 {
			t.Errorf("expected count 0, got %d", count)
		}
		if !resetTime.IsZero() {
			t.Error("expected zero time")
		}
	})

	t.Run("set then get", func(t *testing.T) {
		store := NewMemoryStore()
		resetTime := time.Now().Add(time.Minute)

		store.Set("key", 5, resetTime)

		count, storedReset, exists := store.Get("key")
		if !exists {
			t.Fatal("expected key to exist")
		}
		if count != 5 {
			t.Errorf("expected count 5, got %d", count)
		}
		if !storedReset.Equal(resetTime) {
			t.Errorf("expected reset time %v, got %v", resetTime, storedReset)
		}
	})

	t.Run("expired entries read as absent", func(t *testing.T) {
		store := NewMemoryStore()
		store.Set("key", 5, time.Now().Add(-time.Minute))

		_, _, exists := store.Get("key")
		if exists {
			t.Error("expected expired key to not exist")
		}
	})

	t.Run("increment starts at one", func(t *testing.T) {
		store := NewMemoryStore()

		if count := store.Increment("key", time.Now().Add(time.Minute)); count != 1 {
			t.Errorf("expected count 1, got %d", count)
		}
	})

	t.Run("increment advances an existing window", func(t *testing.T) {
		store := NewMemoryStore()
		resetTime := time.Now().Add(time.Minute)
		store.Set("key", 3, resetTime)

		if count := store.Increment("key", resetTime); count != 4 {
			t.Errorf("expected count 4, got %d", count)
		}
	})

	t.Run("increment restarts an expired window", func(t *testing.T) {
		store := NewMemoryStore()
		store.Set("key", 3, time.Now().Add(-time.Minute))

		if count := store.Increment("key", time.Now().Add(time.Minute)); count != 1 {
			t.Errorf("expected count 1 after window restart, got %d", count)
		}
	})

	t.Run("reset removes the key", func(t *testing.T) {
		store := NewMemoryStore()
		store.Set("key", 3, time.Now().Add(time.Minute))

		store.Reset("key")

		if _, _, exists := store.Get("key"); exists {
			t.Error("expected key to be gone after reset")
		}
	})

	t.Run("concurrent increments are accounted", func(t *testing.T) {
		store := NewMemoryStore()
		resetTime := time.Now().Add(time.Minute)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.Increment("key", resetTime)
			}()
		}
		wg.Wait()

		count, _, exists := store.Get("key")
		if !exists {
			t.Fatal("expected key to exist")
		}
		if count != 50 {
			t.Errorf("expected count 50, got %d", count)
		}
	})
}
