package lru

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type evictEvent struct {
	key    string
	reason EvictReason
}

func newTestCache(t *testing.T, maxSize int, ttl time.Duration) (*LRU[string, int], *fakeClock, *[]evictEvent) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	events := &[]evictEvent{}
	c := New[string, int](
		&Config{MaxSize: maxSize, DefaultTTL: ttl},
		WithClock[string, int](clock.Now),
		WithOnEvict(func(key string, _ int, reason EvictReason) {
			*events = append(*events, evictEvent{key: key, reason: reason})
		}),
	)
	t.Cleanup(func() { _ = c.Close() })
	return c, clock, events
}

func TestLRU_Basic(t *testing.T) {
	c, _, events := newTestCache(t, 10, time.Minute)

	c.Set("key1", 100)
	val, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, 100, val)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Delete("key1")
	_, ok = c.Get("key1")
	assert.False(t, ok)
	assert.Equal(t, []evictEvent{{"key1", EvictDeleted}}, *events)

	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 2, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestLRU_CapacityEvictsOldest(t *testing.T) {
	c, _, events := newTestCache(t, 2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // a 变为最新
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []evictEvent{{"b", EvictCapacity}}, *events)
	assert.ElementsMatch(t, []string{"a", "c"}, c.Keys())
}

func TestLRU_SweepExpired(t *testing.T) {
	c, clock, events := newTestCache(t, 0, time.Minute)

	c.Set("owner-1", 1)
	c.SetWithTTL("owner-2", 2, 3*time.Minute)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, []evictEvent{{"owner-1", EvictExpired}}, *events)
	assert.Equal(t, []string{"owner-2"}, c.Keys())

	clock.Advance(2 * time.Minute)
	_, ok := c.Get("owner-2")
	assert.False(t, ok)
	assert.Len(t, *events, 2)
}

func TestLRU_EvictCallbackMayReinsert(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var c *LRU[string, int]
	retried := 0
	c = New[string, int](
		&Config{DefaultTTL: time.Second},
		WithClock[string, int](clock.Now),
		WithOnEvict(func(key string, v int, reason EvictReason) {
			if reason == EvictExpired && retried == 0 {
				retried++
				c.SetWithTTL(key, v, 0)
			}
		}),
	)
	defer c.Close()

	c.Set("owner", 7)
	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 0, c.Len())
}

func TestLRU_GetOrCreate(t *testing.T) {
	c, _, _ := newTestCache(t, 10, time.Minute)

	calls := 0
	create := func() int { calls++; return 42 }
	assert.Equal(t, 42, c.GetOrCreate("k", create))
	assert.Equal(t, 42, c.GetOrCreate("k", create))
	assert.Equal(t, 1, calls)
}

func TestLRU_BackgroundCleanup(t *testing.T) {
	c := New[string, int](&Config{DefaultTTL: 10 * time.Millisecond, CleanupInterval: 5 * time.Millisecond})
	defer c.Close()

	c.Set("k", 1)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, c.Close())
}
