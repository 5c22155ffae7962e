package cache

import (
	"fmt"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ppiankov/sanhita/internal/fingerprint"
	"github.com/ppiankov/sanhita/internal/model"
)

// MemoryStore implements process-lifetime caching. Entries never expire.
type MemoryStore struct {
	cache  *gocache.Cache
	policy model.CacheWritePolicy
}

// NewMemoryStore creates a new memory store with the given write policy
func NewMemoryStore(policy model.CacheWritePolicy) *MemoryStore {
	if policy == "" {
		policy = model.WriteKeepFirst
	}
	return &MemoryStore{
		cache:  gocache.New(gocache.NoExpiration, 0),
		policy: policy,
	}
}

// Get retrieves an entry by exact key. Anything that is not an Entry reads as a miss.
func (c *MemoryStore) Get(key string) (Entry, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return Entry{}, false
	}
	entry, ok := val.(Entry)
	return entry, ok
}

// Scan walks a snapshot of the cache looking for a near-duplicate signature.
// The best score wins; equal scores go to the older entry, then to the
// smaller key, so the answer does not depend on map iteration order.
func (c *MemoryStore) Scan(sig fingerprint.Set, threshold float64) (Entry, float64, bool) {
	var (
		best      Entry
		bestKey   string
		bestScore float64
		found     bool
	)

	for key, item := range c.cache.Items() {
		entry, ok := item.Object.(Entry)
		if !ok {
			continue
		}
		score := fingerprint.Similarity(sig, entry.Signature)
		if score <= threshold {
			continue
		}
		if !found || score > bestScore || (score == bestScore && preferOlder(entry, key, best, bestKey)) {
			best, bestKey, bestScore, found = entry, key, score, true
		}
	}

	return best, bestScore, found
}

func preferOlder(entry Entry, key string, best Entry, bestKey string) bool {
	if !entry.StoredAt.Equal(best.StoredAt) {
		return entry.StoredAt.Before(best.StoredAt)
	}
	return key < bestKey
}

// Put stores an entry according to the write policy
func (c *MemoryStore) Put(key string, entry Entry) (bool, error) {
	switch c.policy {
	case model.WriteOverwrite:
		c.cache.Set(key, entry, gocache.NoExpiration)
		return true, nil
	case model.WriteKeepFirst:
		// Add fails only when the key already exists
		if err := c.cache.Add(key, entry, gocache.NoExpiration); err != nil {
			return false, nil
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown cache write policy: %s", c.policy)
	}
}

// Len returns the number of cached entries
func (c *MemoryStore) Len() int {
	return c.cache.ItemCount()
}

// Clear removes all entries
func (c *MemoryStore) Clear() {
	c.cache.Flush()
}
