package brackets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func haveSet(tokens ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		out[t] = struct{}{}
	}
	return out
}

func TestCache_NilIsSafe(t *testing.T) {
	var c *EndOfRoundCache
	assert.False(t, c.Enabled())
	c.Store("key", []string{"a"}, 1)
	_, ok := c.Lookup("key", haveSet("a"))
	assert.False(t, ok)
}

func TestCache_DisabledStoresNothing(t *testing.T) {
	c := NewEndOfRoundCache(false)
	c.Store("key", []string{"a"}, 1)
	_, ok := c.Lookup("key", haveSet("a"))
	assert.False(t, ok)
}

func TestCache_LookupLargestContainedCheckpoint(t *testing.T) {
	c := NewEndOfRoundCache(true)
	c.Store("key", []string{"a"}, "after-round-1")
	c.Store("key", []string{"a", "b"}, "after-round-2")
	c.Store("key", []string{"a", "b", "c"}, "after-round-3")

	state, ok := c.Lookup("key", haveSet("a", "b", "x"))
	require.True(t, ok)
	assert.Equal(t, "after-round-2", state)

	state, ok = c.Lookup("key", haveSet("c", "b", "a"))
	require.True(t, ok)
	assert.Equal(t, "after-round-3", state)

	_, ok = c.Lookup("key", haveSet("x"))
	assert.False(t, ok)
}

func TestCache_LookupIgnoresForeignKey(t *testing.T) {
	c := NewEndOfRoundCache(true)
	c.Store("key-a", []string{"a"}, 1)
	_, ok := c.Lookup("key-b", haveSet("a"))
	assert.False(t, ok)
}

func TestCache_StoreDeduplicates(t *testing.T) {
	c := NewEndOfRoundCache(true)
	c.Store("key", []string{"a", "b"}, "first")
	c.Store("key", []string{"b", "a"}, "second")

	state, ok := c.Lookup("key", haveSet("a", "b"))
	require.True(t, ok)
	// Набор токенов тот же: первая контрольная точка сохраняется.
	assert.Equal(t, "first", state)
}

func TestCache_CapacityEviction(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewEndOfRoundCache(true).WithLimits(2, time.Hour)
	c.now = func() time.Time { return now }

	c.Store("k1", []string{"a"}, 1)
	now = now.Add(time.Minute)
	c.Store("k2", []string{"a"}, 2)
	now = now.Add(time.Minute)
	c.Store("k3", []string{"a"}, 3)

	_, ok := c.Lookup("k1", haveSet("a"))
	assert.False(t, ok, "least recently used key evicted")
	_, ok = c.Lookup("k2", haveSet("a"))
	assert.True(t, ok)
	_, ok = c.Lookup("k3", haveSet("a"))
	assert.True(t, ok)
}

func TestCache_IdleEviction(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewEndOfRoundCache(true).WithLimits(100, time.Minute)
	c.now = func() time.Time { return now }

	c.Store("stale", []string{"a"}, 1)
	now = now.Add(2 * time.Minute)
	c.Store("fresh", []string{"a"}, 2)

	_, ok := c.Lookup("stale", haveSet("a"))
	assert.False(t, ok)
	_, ok = c.Lookup("fresh", haveSet("a"))
	assert.True(t, ok)
}

func TestCache_LookupRefreshesLastAccess(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewEndOfRoundCache(true).WithLimits(2, time.Hour)
	c.now = func() time.Time { return now }

	c.Store("k1", []string{"a"}, 1)
	now = now.Add(time.Minute)
	c.Store("k2", []string{"a"}, 2)

	// Обращение к k1 делает k2 самым старым.
	now = now.Add(time.Minute)
	c.Lookup("k1", haveSet("a"))
	now = now.Add(time.Minute)
	c.Store("k3", []string{"a"}, 3)

	_, ok := c.Lookup("k1", haveSet("a"))
	assert.True(t, ok)
	_, ok = c.Lookup("k2", haveSet("a"))
	assert.False(t, ok)
}
