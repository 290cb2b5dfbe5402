package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	_, found := c.Get("missing")
	assert.False(t, found)

	c.Set("a", "alpha")
	got, found := c.Get("a")
	assert.True(t, found)
	assert.Equal(t, "alpha", got)

	c.Set("a", "replaced")
	got, _ = c.Get("a")
	assert.Equal(t, "replaced", got)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)
	for i := 1; i <= 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	// Touch k1 so k2 becomes the eviction candidate.
	c.Get("k1")
	c.Set("k4", 4)

	_, found := c.Get("k2")
	assert.False(t, found, "least recently used entry should be evicted")
	for _, key := range []string{"k1", "k3", "k4"} {
		_, found := c.Get(key)
		assert.True(t, found, "entry %s should survive", key)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("a")
	assert.False(t, found, "expired entry should be a miss")
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_Delete(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a")

	_, found := c.Get("a")
	assert.False(t, found)
}

func TestManager_Sweeps(t *testing.T) {
	c := NewLRUCache[int](4, 5*time.Millisecond)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(10 * time.Millisecond)
	defer m.Stop()

	assert.Eventually(t, func() bool { return c.Size() == 0 },
		500*time.Millisecond, 10*time.Millisecond)
}
