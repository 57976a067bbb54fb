// Package router selects the next interview question: from the shared
// bounded question cache when the context has been seen before, freshly
// generated by the language model otherwise, and from a static template
// pool when the model is unavailable.
package router

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// CacheEntry holds one previously generated question, shared across
// sessions to amortize generation cost.
type CacheEntry struct {
	Key         string
	Question    string
	IdealAnswer string
	Keywords    []string
	CreatedAt   time.Time
}

// QuestionCache is a fixed-capacity cache with strict FIFO eviction:
// insertion order, not access order, determines the victim. Repeat access
// patterns are unpredictable across independent sessions, so tracking
// per-entry access recency buys nothing.
type QuestionCache struct {
	mu       sync.RWMutex
	entries  map[string]*CacheEntry
	order    []string // insertion order, oldest first
	capacity int
}

// NewQuestionCache creates a cache with the given capacity.
func NewQuestionCache(capacity int) *QuestionCache {
	if capacity <= 0 {
		capacity = 200
	}
	return &QuestionCache{
		entries:  make(map[string]*CacheEntry),
		capacity: capacity,
	}
}

// Get retrieves a cached entry by key.
func (c *QuestionCache) Get(key string) (*CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Set stores an entry, evicting the oldest insertion when at capacity.
// Insert and evict happen under one lock so capacity never races.
func (c *QuestionCache) Set(key, question, idealAnswer string, keywords []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		// Refresh value, keep original insertion position.
		c.entries[key].Question = question
		c.entries[key].IdealAnswer = idealAnswer
		c.entries[key].Keywords = keywords
		return
	}

	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &CacheEntry{
		Key:         key,
		Question:    question,
		IdealAnswer: idealAnswer,
		Keywords:    keywords,
		CreatedAt:   time.Now(),
	}
	c.order = append(c.order, key)
}

// Remove deletes the given keys. Missing keys are ignored.
func (c *QuestionCache) Remove(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if _, ok := c.entries[key]; !ok {
			continue
		}
		delete(c.entries, key)
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
}

// Size returns the number of cached entries.
func (c *QuestionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fingerprint builds the normalized cache key for a question context:
// role, experience level, round, difficulty, and the sorted fingerprints of
// questions already asked in the session (so a repeat context after an
// answered question keys differently and never replays a question).
func Fingerprint(role, level, round, difficulty string, asked []string) string {
	sorted := make([]string, len(asked))
	copy(sorted, asked)
	sort.Strings(sorted)

	h := sha256.New()
	for _, part := range []string{
		normalize(role), normalize(level), normalize(round), normalize(difficulty),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	for _, fp := range sorted {
		h.Write([]byte(fp))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
