package cache

import (
	"context"
	"sync"
	"time"

	"askora/internal/models"
)

// DefaultTTL is how long an answer stays reusable.
const DefaultTTL = 2 * time.Minute

// AnswerCache memoizes answers by key. Implementations are best effort: a
// failing backend behaves as a miss and a failed Set is dropped.
type AnswerCache interface {
	Get(ctx context.Context, key string) (*models.Answer, bool)
	Set(ctx context.Context, key string, answer *models.Answer, ttl time.Duration)
}

// Key builds the cache key from the classified intent and the folded question.
func Key(intent, normalizedQuestion string) string {
	return intent + "|" + normalizedQuestion
}

type memoryEntry struct {
	answer    *models.Answer
	expiresAt time.Time
}

// MemoryCache is a process-local AnswerCache. Values are copied on the way in
// and out so callers never share an Answer.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.answer.Clone(), true
}

func (c *MemoryCache) Set(_ context.Context, key string, answer *models.Answer, ttl time.Duration) {
	if answer == nil || ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	c.entries[key] = memoryEntry{answer: answer.Clone(), expiresAt: c.now().Add(ttl)}
}

// Len reports live entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	return len(c.entries)
}

func (c *MemoryCache) sweep() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
