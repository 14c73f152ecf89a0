// Package cache keeps loaded datasets around between runs: an in-memory LRU
// in front of an LZ4-compressed on-disk store.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/Sumatoshi-tech/sensortrend/pkg/loader"
	"github.com/Sumatoshi-tech/sensortrend/pkg/units"
)

// DefaultLRUCacheSize is the default memory budget for cached samples (256 MiB).
const DefaultLRUCacheSize = 256 * units.MiB

// bytesPerSample is the in-memory footprint of one normalized sample.
const bytesPerSample = 8

// bytesPerKB normalizes entry sizes in the eviction cost.
const bytesPerKB = 1024.0

// LRU caches datasets by key under a memory budget. Large, rarely used
// entries are evicted first.
type LRU struct {
	mu          sync.Mutex
	entries     map[string]*lruEntry
	head        *lruEntry // Most recently used.
	tail        *lruEntry // Least recently used.
	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry struct {
	key         string
	dataset     *loader.Dataset
	size        int64
	accessCount int64
	prev        *lruEntry
	next        *lruEntry
}

// evictionCost is accesses per KiB; lower means evict sooner.
func (e *lruEntry) evictionCost() float64 {
	sizeKB := float64(e.size) / bytesPerKB
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// NewLRU creates an LRU with the given budget in bytes.
func NewLRU(maxSize int64) *LRU {
	if maxSize <= 0 {
		maxSize = DefaultLRUCacheSize
	}

	return &LRU{
		entries: make(map[string]*lruEntry),
		maxSize: maxSize,
	}
}

func datasetSize(ds *loader.Dataset) int64 {
	return int64(len(ds.Samples)) * bytesPerSample
}

// Get returns the dataset cached under key, or nil.
func (c *LRU) Get(key string) *loader.Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		return nil
	}

	c.hits.Add(1)

	entry.accessCount++
	c.moveToFront(entry)

	return entry.dataset
}

// Put stores ds under key. Datasets larger than the whole budget are ignored.
func (c *LRU) Put(key string, ds *loader.Dataset) {
	if ds == nil {
		return
	}

	size := datasetSize(ds)
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.accessCount++
		c.moveToFront(entry)

		return
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}

	entry := &lruEntry{
		key:         key,
		dataset:     ds,
		size:        size,
		accessCount: 1,
	}

	c.entries[key] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// Stats returns cache statistics.
func (c *LRU) Stats() LRUStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return LRUStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// LRUStats holds cache counters.
type LRUStats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns hits / lookups, or 0 before the first lookup.
func (s LRUStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*lruEntry)
	c.head = nil
	c.tail = nil
	c.currentSize = 0
}

func (c *LRU) moveToFront(entry *lruEntry) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU) addToFront(entry *lruEntry) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU) removeFromList(entry *lruEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

// evictionSampleSize bounds how many tail entries are considered per eviction.
const evictionSampleSize = 5

// evictLowestCost removes the cheapest of the last few LRU entries.
func (c *LRU) evictLowestCost() {
	if c.tail == nil {
		return
	}

	victim := c.tail
	lowestCost := victim.evictionCost()

	entry := victim.prev
	for i := 1; entry != nil && i < evictionSampleSize; i++ {
		cost := entry.evictionCost()
		if cost < lowestCost {
			lowestCost = cost
			victim = entry
		}

		entry = entry.prev
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size
}
