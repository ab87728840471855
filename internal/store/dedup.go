// Package store holds the lookup cache gate, its persistent backends and the
// batch deduplication store.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFalsePositiveRate is the Bloom filter error rate used by NewDedupStore callers.
const DefaultFalsePositiveRate = 0.001

// DedupStore remembers request keys already seen in a batch. The Bloom filter
// answers most negative lookups; the exact set and LRU bound the memory.
type DedupStore struct {
	keys              map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mutex             sync.RWMutex
	maxKeys           int
	falsePositiveRate float64
}

// NewDedupStore creates a store holding at most maxKeys keys.
func NewDedupStore(maxKeys int, falsePositiveRate float64) *DedupStore {
	if maxKeys <= 0 {
		maxKeys = 1
	}
	lruCache, _ := lru.New[string, struct{}](maxKeys)

	return &DedupStore{
		keys:              make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(maxKeys), falsePositiveRate),
		lru:               lruCache,
		maxKeys:           maxKeys,
		falsePositiveRate: falsePositiveRate,
	}
}

// Has reports whether key was added and not yet evicted.
func (ds *DedupStore) Has(key string) bool {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	if !ds.bloom.TestString(key) {
		return false
	}

	_, exists := ds.keys[key]
	return exists
}

// Add records key. The oldest key is evicted once the store is full.
func (ds *DedupStore) Add(key string) {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if _, exists := ds.keys[key]; exists {
		return
	}

	ds.keys[key] = struct{}{}
	ds.bloom.AddString(key)
	ds.lru.Add(key, struct{}{})

	if len(ds.keys) > ds.maxKeys {
		ds.evictOldest()
	}
}

// Size returns the number of keys currently stored.
func (ds *DedupStore) Size() int {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return len(ds.keys)
}

// Clear forgets every key.
func (ds *DedupStore) Clear() {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	ds.keys = make(map[string]struct{})
	ds.bloom = bloom.NewWithEstimates(uint(ds.maxKeys), ds.falsePositiveRate)
	ds.lru.Purge()
}

func (ds *DedupStore) evictOldest() {
	oldestKey, _, ok := ds.lru.GetOldest()
	if !ok {
		return
	}

	delete(ds.keys, oldestKey)
	ds.lru.Remove(oldestKey)
}
