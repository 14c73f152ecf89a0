package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/sensortrend/pkg/loader"
)

func datasetOf(n int) *loader.Dataset {
	return &loader.Dataset{Samples: make([]float64, n)}
}

func TestLRU_GetPut(t *testing.T) {
	t.Parallel()

	c := NewLRU(1024)

	assert.Nil(t, c.Get("a"))

	ds := datasetOf(4)
	c.Put("a", ds)

	assert.Same(t, ds, c.Get("a"))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(32), stats.CurrentSize)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-12)
}

func TestLRU_Eviction(t *testing.T) {
	t.Parallel()

	// Room for exactly two 8-sample datasets.
	c := NewLRU(128)

	c.Put("a", datasetOf(8))
	c.Put("b", datasetOf(8))
	require.NotNil(t, c.Get("a"))

	c.Put("c", datasetOf(8))

	assert.NotNil(t, c.Get("a"), "recently used entry survives")
	assert.Nil(t, c.Get("b"))
	assert.NotNil(t, c.Get("c"))
	assert.LessOrEqual(t, c.Stats().CurrentSize, int64(128))
}

func TestLRU_OversizedIgnored(t *testing.T) {
	t.Parallel()

	c := NewLRU(16)
	c.Put("big", datasetOf(100))
	c.Put("nil", nil)

	assert.Equal(t, 0, c.Stats().Entries)
}

func TestLRU_Clear(t *testing.T) {
	t.Parallel()

	c := NewLRU(0)
	c.Put("a", datasetOf(1))
	c.Clear()

	assert.Nil(t, c.Get("a"))
	assert.Equal(t, int64(DefaultLRUCacheSize), c.Stats().MaxSize)
	assert.Zero(t, c.Stats().CurrentSize)
}

func TestLRUStats_HitRateEmpty(t *testing.T) {
	t.Parallel()

	assert.Zero(t, LRUStats{}.HitRate())
}
