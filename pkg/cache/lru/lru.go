// Package lru 带 TTL 的 LRU 缓存
//
// 条目在 TTL 到期、超出容量或被 Delete 时移除，并以 EvictReason 通知调用方。
// 通知在释放锁之后执行，回调内可以再次写入缓存（例如延长宽限期）。
package lru

import (
	"container/list"
	"sync"
	"time"

	"github.com/ImOpaque/GensTools-sub000/pkg/util/conc"
)

// EvictReason 条目被移除的原因
type EvictReason int

const (
	EvictExpired EvictReason = iota
	EvictCapacity
	EvictDeleted
)

var reasonNames = [...]string{"expired", "capacity", "deleted"}

func (r EvictReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Config 缓存参数
type Config struct {
	// MaxSize <= 0 不限容量
	MaxSize int
	// DefaultTTL Set/GetOrCreate 使用的存活时间，0 表示下次 Sweep 即过期
	DefaultTTL time.Duration
	// CleanupInterval > 0 时后台定期 Sweep，否则由调用方驱动
	CleanupInterval time.Duration
}

type item[K comparable, V any] struct {
	key      K
	value    V
	deadline time.Time
}

type removal[K comparable, V any] struct {
	key    K
	value  V
	reason EvictReason
}

// LRU 并发安全，链表头部为最近使用
type LRU[K comparable, V any] struct {
	cfg Config
	now func() time.Time

	mu    sync.Mutex
	order *list.List
	index map[K]*list.Element

	onEvict func(key K, value V, reason EvictReason)

	sweeper *conc.Pool[struct{}]
	stop    chan struct{}
	closed  sync.Once
}

// Option 缓存选项
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict 设置移除通知
func WithOnEvict[K comparable, V any](fn func(key K, value V, reason EvictReason)) Option[K, V] {
	return func(c *LRU[K, V]) { c.onEvict = fn }
}

// WithClock 替换时间源
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRU[K, V]) { c.now = now }
}

// New 创建缓存
func New[K comparable, V any](cfg *Config, opts ...Option[K, V]) *LRU[K, V] {
	c := &LRU[K, V]{
		cfg:   *cfg,
		now:   time.Now,
		order: list.New(),
		index: make(map[K]*list.Element),
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.CleanupInterval > 0 {
		c.sweeper = conc.NewPool[struct{}](1)
		c.sweeper.Submit(func() (struct{}, error) {
			t := time.NewTicker(c.cfg.CleanupInterval)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					c.Sweep()
				case <-c.stop:
					return struct{}{}, nil
				}
			}
		})
	}
	return c
}

func (c *LRU[K, V]) expired(it *item[K, V], now time.Time) bool {
	return !now.Before(it.deadline)
}

// Get 命中时刷新为最近使用；过期条目在此处移除
func (c *LRU[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	elem, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	it := elem.Value.(*item[K, V])
	if c.expired(it, c.now()) {
		r := c.unlink(elem, EvictExpired)
		c.mu.Unlock()
		c.emit(r)
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.mu.Unlock()
	return it.value, true
}

// Set 写入并使用 DefaultTTL
func (c *LRU[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.cfg.DefaultTTL)
}

// SetWithTTL 写入或覆盖，覆盖时重置存活时间
func (c *LRU[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	deadline := c.now().Add(ttl)
	if elem, ok := c.index[key]; ok {
		it := elem.Value.(*item[K, V])
		it.value, it.deadline = value, deadline
		c.order.MoveToFront(elem)
		c.mu.Unlock()
		return
	}
	c.index[key] = c.order.PushFront(&item[K, V]{key: key, value: value, deadline: deadline})
	out := c.shrink()
	c.mu.Unlock()
	c.emit(out...)
}

// GetOrCreate 未命中或已过期时调用 create，整个过程持锁
func (c *LRU[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	now := c.now()

	var out []removal[K, V]
	if elem, ok := c.index[key]; ok {
		it := elem.Value.(*item[K, V])
		if !c.expired(it, now) {
			c.order.MoveToFront(elem)
			c.mu.Unlock()
			return it.value
		}
		out = append(out, c.unlink(elem, EvictExpired))
	}

	value := create()
	c.index[key] = c.order.PushFront(&item[K, V]{key: key, value: value, deadline: now.Add(c.cfg.DefaultTTL)})
	out = append(out, c.shrink()...)
	c.mu.Unlock()

	c.emit(out...)
	return value
}

// Delete 移除 key 并以 EvictDeleted 通知
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	elem, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	r := c.unlink(elem, EvictDeleted)
	c.mu.Unlock()
	c.emit(r)
}

// Sweep 移除全部过期条目，返回数量
func (c *LRU[K, V]) Sweep() int {
	c.mu.Lock()
	now := c.now()
	var out []removal[K, V]
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*item[K, V]), now) {
			out = append(out, c.unlink(elem, EvictExpired))
		}
		elem = prev
	}
	c.mu.Unlock()

	c.emit(out...)
	return len(out)
}

// Keys 未过期的 key，最近使用在前
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]K, 0, len(c.index))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if it := elem.Value.(*item[K, V]); !c.expired(it, now) {
			keys = append(keys, it.key)
		}
	}
	return keys
}

// Len 包含尚未 Sweep 的过期条目
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Clear 清空且不通知
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.index = make(map[K]*list.Element)
}

// Close 停止后台清理，可重复调用
func (c *LRU[K, V]) Close() error {
	c.closed.Do(func() {
		close(c.stop)
		if c.sweeper != nil {
			c.sweeper.Release()
		}
	})
	return nil
}

// shrink 按容量移除最久未用的条目，调用方持锁
func (c *LRU[K, V]) shrink() []removal[K, V] {
	if c.cfg.MaxSize <= 0 {
		return nil
	}
	var out []removal[K, V]
	for len(c.index) > c.cfg.MaxSize {
		out = append(out, c.unlink(c.order.Back(), EvictCapacity))
	}
	return out
}

// unlink 调用方持锁
func (c *LRU[K, V]) unlink(elem *list.Element, reason EvictReason) removal[K, V] {
	it := c.order.Remove(elem).(*item[K, V])
	delete(c.index, it.key)
	return removal[K, V]{key: it.key, value: it.value, reason: reason}
}

func (c *LRU[K, V]) emit(out ...removal[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, r := range out {
		c.onEvict(r.key, r.value, r.reason)
	}
}
