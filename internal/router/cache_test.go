package router

import (
	"fmt"
	"testing"
)

func TestCacheSetGet(t *testing.T) {
	c := NewQuestionCache(10)

	c.Set("k1", "What is a goroutine?", "A lightweight thread managed by the runtime.", []string{"scheduler", "stack"})

	entry, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected cache hit for k1")
	}
	if entry.Question != "What is a goroutine?" {
		t.Errorf("Question = %q", entry.Question)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheFIFOEviction(t *testing.T) {
	const capacity = 4
	c := NewQuestionCache(capacity)

	for i := 0; i < capacity+1; i++ {
		c.Set(fmt.Sprintf("k%d", i), fmt.Sprintf("q%d", i), "ideal", nil)
	}

	if c.Size() != capacity {
		t.Errorf("Size() = %d, want capped at %d", c.Size(), capacity)
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("oldest entry k0 should have been evicted")
	}
	if _, ok := c.Get("k4"); !ok {
		t.Error("newest entry k4 should be present")
	}
}

func TestCacheSetRefreshKeepsInsertionOrder(t *testing.T) {
	c := NewQuestionCache(2)

	c.Set("k0", "q0", "ideal", nil)
	c.Set("k1", "q1", "ideal", nil)

	// Refreshing k0 must not move it to the back of the eviction queue.
	c.Set("k0", "q0-updated", "ideal", nil)

	c.Set("k2", "q2", "ideal", nil)
	if _, ok := c.Get("k0"); ok {
		t.Error("k0 should still be the FIFO victim after refresh")
	}
	if entry, ok := c.Get("k1"); !ok || entry.Question != "q1" {
		t.Error("k1 should survive")
	}
}

func TestCacheRemove(t *testing.T) {
	c := NewQuestionCache(10)
	c.Set("k0", "q0", "ideal", nil)
	c.Set("k1", "q1", "ideal", nil)

	c.Remove("k0", "nonexistent")
	if _, ok := c.Get("k0"); ok {
		t.Error("k0 should be removed")
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	// Removed slot frees capacity for new inserts.
	c.Set("k2", "q2", "ideal", nil)
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("Backend Engineer", "mid", "technical", "medium", []string{"fp1", "fp2"})
	b := Fingerprint("Backend Engineer", "mid", "technical", "medium", []string{"fp1", "fp2"})
	if a != b {
		t.Errorf("identical contexts produced different keys: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("key length = %d, want 16", len(a))
	}
}

func TestFingerprintOrderInsensitiveAskedSet(t *testing.T) {
	a := Fingerprint("Backend Engineer", "mid", "technical", "medium", []string{"fp1", "fp2"})
	b := Fingerprint("Backend Engineer", "mid", "technical", "medium", []string{"fp2", "fp1"})
	if a != b {
		t.Error("asked-fingerprint order should not change the key")
	}
}

func TestFingerprintNormalizesContext(t *testing.T) {
	a := Fingerprint("Backend  Engineer", "MID", "technical", "medium", nil)
	b := Fingerprint("backend engineer", "mid", "technical", "medium", nil)
	if a != b {
		t.Error("whitespace and case should not change the key")
	}
}

func TestFingerprintSeparatesContexts(t *testing.T) {
	base := Fingerprint("Backend Engineer", "mid", "technical", "medium", nil)
	variants := []string{
		Fingerprint("Data Engineer", "mid", "technical", "medium", nil),
		Fingerprint("Backend Engineer", "senior", "technical", "medium", nil),
		Fingerprint("Backend Engineer", "mid", "hr", "medium", nil),
		Fingerprint("Backend Engineer", "mid", "technical", "hard", nil),
		Fingerprint("Backend Engineer", "mid", "technical", "medium", []string{"fp1"}),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with the base key", i)
		}
	}
}
