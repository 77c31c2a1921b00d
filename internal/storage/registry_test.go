package storage

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryUpdateKeepsValueOnError(t *testing.T) {
	r := NewRegistry[int]()
	r.Put("a", 1)

	boom := errors.New("boom")
	if _, err := r.Update("a", func(v int) (int, error) { return v + 1, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if v, _ := r.Get("a"); v != 1 {
		t.Fatalf("value changed on failed update: %d", v)
	}

	if v, err := r.Update("a", func(v int) (int, error) { return v + 1, nil }); err != nil || v != 2 {
		t.Fatalf("update: v=%d err=%v", v, err)
	}
}

func TestRegistryMissing(t *testing.T) {
	r := NewRegistry[string]()
	if _, err := r.Get("x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if _, err := r.Update("x", func(s string) (string, error) { return s, nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	if _, ok := r.Remove("x"); ok {
		t.Fatalf("removed missing id")
	}
	r.Put("x", "y")
	if v, ok := r.Remove("x"); !ok || v != "y" {
		t.Fatalf("remove: v=%q ok=%v", v, ok)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestRegistryConcurrentUpdatesSerialize(t *testing.T) {
	r := NewRegistry[int]()
	r.Put("a", 0)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Update("a", func(v int) (int, error) { return v + 1, nil }); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if v, _ := r.Get("a"); v != n {
		t.Fatalf("lost updates: got %d, want %d", v, n)
	}
}

func TestRegistryRemoveOnce(t *testing.T) {
	r := NewRegistry[int]()
	r.Put("a", 1)

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	removed := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Remove("a"); ok {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if removed != 1 {
		t.Fatalf("remove succeeded %d times, want 1", removed)
	}
}
