package cache

import (
	"time"

	"github.com/ppiankov/sanhita/internal/fingerprint"
	"github.com/ppiankov/sanhita/internal/model"
)

// Entry is one cached analysis. Entries are never updated in place.
type Entry struct {
	Result    model.AnalysisResult
	Signature fingerprint.Set
	StoredAt  time.Time
}

// Store defines the result cache owned by the analyzer
type Store interface {
	// Get returns the entry stored under an exact key
	Get(key string) (Entry, bool)

	// Scan returns the most similar entry whose signature similarity is
	// strictly greater than threshold
	Scan(sig fingerprint.Set, threshold float64) (Entry, float64, bool)

	// Put stores an entry; stored is false when the write policy kept an
	// existing entry
	Put(key string, entry Entry) (stored bool, err error)

	// Len returns the number of entries
	Len() int

	// Clear removes all entries
	Clear()
}

// CacheKey generates a cache key from a fingerprint
func CacheKey(id fingerprint.ID) string {
	return "sanhita:v1:" + string(id)
}

// NopStore is used when caching is disabled
type NopStore struct{}

func (NopStore) Get(string) (Entry, bool) { return Entry{}, false }

func (NopStore) Scan(fingerprint.Set, float64) (Entry, float64, bool) { return Entry{}, 0, false }

func (NopStore) Put(string, Entry) (bool, error) { return false, nil }

func (NopStore) Len() int { return 0 }

func (NopStore) Clear() {}
