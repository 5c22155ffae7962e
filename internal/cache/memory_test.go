package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/sanhita/internal/fingerprint"
	"github.com/ppiankov/sanhita/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryFor(text, summary string, at time.Time) (string, Entry) {
	id := fingerprint.Fingerprint(text)
	return CacheKey(id), Entry{
		Result:    model.AnalysisResult{Fingerprint: string(id), Summary: summary},
		Signature: fingerprint.Signature(text),
		StoredAt:  at,
	}
}

func TestMemoryStore_GetPut(t *testing.T) {
	store := NewMemoryStore(model.WriteKeepFirst)
	key, entry := entryFor("they broke the lock and took the cash", "first", time.Now())

	_, found := store.Get(key)
	assert.False(t, found)

	stored, err := store.Put(key, entry)
	require.NoError(t, err)
	assert.True(t, stored)

	got, found := store.Get(key)
	require.True(t, found)
	assert.Equal(t, "first", got.Result.Summary)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_KeepFirst(t *testing.T) {
	store := NewMemoryStore(model.WriteKeepFirst)
	key, first := entryFor("same narrative text", "first", time.Now())
	_, second := entryFor("same narrative text", "second", time.Now())

	stored, err := store.Put(key, first)
	require.NoError(t, err)
	require.True(t, stored)

	stored, err = store.Put(key, second)
	require.NoError(t, err)
	assert.False(t, stored)

	got, _ := store.Get(key)
	assert.Equal(t, "first", got.Result.Summary)
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore(model.WriteOverwrite)
	key, first := entryFor("same narrative text", "first", time.Now())
	_, second := entryFor("same narrative text", "second", time.Now())

	_, _ = store.Put(key, first)
	stored, err := store.Put(key, second)
	require.NoError(t, err)
	assert.True(t, stored)

	got, _ := store.Get(key)
	assert.Equal(t, "second", got.Result.Summary)
}

func TestMemoryStore_UnknownPolicy(t *testing.T) {
	store := NewMemoryStore("sometimes")
	key, entry := entryFor("text", "", time.Now())

	_, err := store.Put(key, entry)
	assert.Error(t, err)
}

func TestMemoryStore_Scan(t *testing.T) {
	store := NewMemoryStore(model.WriteKeepFirst)
	now := time.Now()

	key, entry := entryFor("three armed robbers broke the lock and stole jewellery and cash", "robbery", now)
	_, _ = store.Put(key, entry)
	key, entry = entryFor("my neighbour cheated me with forged property papers", "cheating", now)
	_, _ = store.Put(key, entry)

	// Seven of eight tokens shared with the robbery narrative
	query := fingerprint.Signature("three armed robbers broke the lock and stole jewellery and money")
	got, score, found := store.Scan(query, fingerprint.DefaultThreshold)
	require.True(t, found)
	assert.Equal(t, "robbery", got.Result.Summary)
	assert.Greater(t, score, fingerprint.DefaultThreshold)

	_, _, found = store.Scan(fingerprint.Signature("a completely unrelated complaint about noise"), fingerprint.DefaultThreshold)
	assert.False(t, found)
}

func TestMemoryStore_ScanThresholdIsStrict(t *testing.T) {
	store := NewMemoryStore(model.WriteKeepFirst)
	key, entry := entryFor("alpha bravo charlie delta", "x", time.Now())
	_, _ = store.Put(key, entry)

	// 2 of 4 shared tokens = 0.5
	query := fingerprint.NewSet("alpha", "bravo", "echo", "foxtrot")
	_, _, found := store.Scan(query, 0.5)
	assert.False(t, found)
	_, _, found = store.Scan(query, 0.49)
	assert.True(t, found)
}

func TestMemoryStore_ScanPrefersOlderOnTie(t *testing.T) {
	store := NewMemoryStore(model.WriteKeepFirst)
	now := time.Now()

	_, _ = store.Put("a", Entry{Result: model.AnalysisResult{Summary: "newer"}, Signature: fingerprint.NewSet("lock", "cash"), StoredAt: now})
	_, _ = store.Put("b", Entry{Result: model.AnalysisResult{Summary: "older"}, Signature: fingerprint.NewSet("lock", "cash"), StoredAt: now.Add(-time.Minute)})

	got, _, found := store.Scan(fingerprint.NewSet("lock", "cash"), 0.7)
	require.True(t, found)
	assert.Equal(t, "older", got.Result.Summary)
}

func TestMemoryStore_ScanTieBreaksOnKey(t *testing.T) {
	store := NewMemoryStore(model.WriteKeepFirst)
	now := time.Now()

	for _, key := range []string{"sanhita:v1:c", "sanhita:v1:a", "sanhita:v1:b"} {
		_, _ = store.Put(key, Entry{Result: model.AnalysisResult{Summary: key}, Signature: fingerprint.NewSet("lock", "cash"), StoredAt: now})
	}

	for i := 0; i < 20; i++ {
		got, _, found := store.Scan(fingerprint.NewSet("lock", "cash"), 0.7)
		require.True(t, found)
		assert.Equal(t, "sanhita:v1:a", got.Result.Summary)
	}
}

func TestMemoryStore_ForeignValueIsMiss(t *testing.T) {
	store := NewMemoryStore(model.WriteKeepFirst)
	store.cache.Set("sanhita:v1:junk", []byte("not an entry"), 0)

	_, found := store.Get("sanhita:v1:junk")
	assert.False(t, found)
	_, _, found = store.Scan(fingerprint.NewSet("junk"), 0)
	assert.False(t, found)
}

func TestMemoryStore_ConcurrentWriters(t *testing.T) {
	store := NewMemoryStore(model.WriteKeepFirst)

	var wg sync.WaitGroup
	var mu sync.Mutex
	stored := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, entry := entryFor("contended narrative", "x", time.Now())
			ok, err := store.Put(key, entry)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				stored++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, stored)
	assert.Equal(t, 1, store.Len())
}

func TestNopStore(t *testing.T) {
	var store Store = NopStore{}
	key, entry := entryFor("text", "", time.Now())

	stored, err := store.Put(key, entry)
	require.NoError(t, err)
	assert.False(t, stored)
	_, found := store.Get(key)
	assert.False(t, found)
	assert.Equal(t, 0, store.Len())
}
