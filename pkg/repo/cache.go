package repo

import (
	"sync"

	"bookshelf/pkg/domain"
)

// ListCache holds assembled lists-with-books snapshots keyed by user ID.
// The repository's write path clears the whole cache on any mutation; the
// per-key Invalidate exists so a finer policy can be adopted without touching
// call sites.
type ListCache interface {
	Get(userID string) ([]domain.BookList, bool)
	Put(userID string, lists []domain.BookList)
	Invalidate(userID string)
	InvalidateAll()
}

type memoryListCache struct {
	mu      sync.RWMutex
	entries map[string][]domain.BookList
}

// NewMemoryListCache returns an in-process ListCache with no eviction.
func NewMemoryListCache() ListCache {
	return &memoryListCache{entries: make(map[string][]domain.BookList)}
}

func (c *memoryListCache) Get(userID string) ([]domain.BookList, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lists, ok := c.entries[userID]
	return lists, ok
}

func (c *memoryListCache) Put(userID string, lists []domain.BookList) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = lists
}

func (c *memoryListCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

func (c *memoryListCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]domain.BookList)
}
