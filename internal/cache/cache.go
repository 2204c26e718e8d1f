// Package cache provides a TTL+LRU cache for online search results with
// optional persistence.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/teian/internal/models"
)

// Store persists cache entries across restarts.
type Store interface {
	Load() (map[string]Entry, error)
	Put(key string, entry Entry) error
	Delete(key string) error
	Close() error
}

// Entry is a cached set of results with its write time.
type Entry struct {
	Results  []models.SearchResult `json:"results"`
	StoredAt time.Time             `json:"stored_at"`
}

// ResultCache caches online search results keyed by normalized query.
// Entries expire after a TTL; beyond maxEntries the least recently used
// entry is evicted. All methods are safe for concurrent use.
type ResultCache struct {
	ttl        time.Duration
	maxEntries int
	store      Store // may be nil for memory-only operation

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List

	now func() time.Time // test hook
}

type lruEntry struct {
	key   string
	entry Entry
}

// New creates a ResultCache. store may be nil; if non-nil, surviving entries
// are loaded from it and writes flow through to it. Expired entries in the
// store are dropped on load.
func New(maxEntries int, ttl time.Duration, store Store) (*ResultCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &ResultCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		store:      store,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		now:        time.Now,
	}
	if store != nil {
		persisted, err := store.Load()
		if err != nil {
			return nil, err
		}
		for key, entry := range persisted {
			if c.now().Sub(entry.StoredAt) > ttl {
				_ = store.Delete(key)
				continue
			}
			c.entries[key] = c.lru.PushBack(&lruEntry{key: key, entry: entry})
			if c.lru.Len() > maxEntries {
				c.evictOldestLocked()
			}
		}
	}
	return c, nil
}

// NormalizeKey canonicalizes a query for cache lookup: lowercased, trimmed,
// inner whitespace collapsed.
func NormalizeKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get returns cached results for query. Expired entries are removed and
// reported as a miss.
func (c *ResultCache) Get(query string) ([]models.SearchResult, bool) {
	key := NormalizeKey(query)
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*lruEntry).entry
	if c.now().Sub(entry.StoredAt) > c.ttl {
		c.removeLocked(elem)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.Results, true
}

// Put stores results for query, evicting the least recently used entry when
// the cache is full. Persistence failures are ignored; the in-memory entry
// remains authoritative for this process.
func (c *ResultCache) Put(query string, results []models.SearchResult) {
	key := NormalizeKey(query)
	entry := Entry{Results: results, StoredAt: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*lruEntry).entry = entry
		c.lru.MoveToFront(elem)
	} else {
		c.entries[key] = c.lru.PushFront(&lruEntry{key: key, entry: entry})
		if c.lru.Len() > c.maxEntries {
			c.evictOldestLocked()
		}
	}
	if c.store != nil {
		_ = c.store.Put(key, entry)
	}
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close closes the backing store if present.
func (c *ResultCache) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

func (c *ResultCache) evictOldestLocked() {
	oldest := c.lru.Back()
	if oldest != nil {
		c.removeLocked(oldest)
	}
}

func (c *ResultCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*lruEntry)
	c.lru.Remove(elem)
	delete(c.entries, entry.key)
	if c.store != nil {
		_ = c.store.Delete(entry.key)
	}
}
