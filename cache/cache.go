// Package cache implements an approximate-LRU byte- or count-bounded cache
// keyed by core.VariantKey, with single-flight population.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lust-img/lust/core"
)

// Mode selects how a Cache's capacity is measured.
type Mode int

const (
	// ModeCount evicts LRU entries once the entry count exceeds Limit.
	ModeCount Mode = iota
	// ModeCapacity evicts LRU entries once total cached bytes exceed Limit.
	ModeCapacity
)

// Config configures a Cache. Mode selects what Limit measures: an entry
// count for ModeCount, a byte total for ModeCapacity.
type Config struct {
	Mode  Mode
	Limit int64 // entry count for ModeCount, bytes for ModeCapacity
}

type entry struct {
	key   string
	bytes []byte
}

// Cache is a single bucket-scoped (or global) cache instance. Safe for
// concurrent use by many readers and writers; eviction is approximate LRU,
// but GetOrCompute's single-flight guarantee is strict.
type Cache struct {
	cfg Config

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List
	size  int64 // total bytes currently held; meaningful only in ModeCapacity

	sf singleflight.Group
}

// New builds an empty Cache per cfg.
func New(cfg Config) *Cache {
	return &Cache{
		cfg:   cfg,
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

func keyString(k core.VariantKey) string {
	return k.Path()
}

// Get returns the cached bytes for key and true on a hit, promoting the
// entry to most-recently-used. A miss returns (nil, false).
func (c *Cache) Get(key core.VariantKey) ([]byte, bool) {
	k := keyString(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[k]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).bytes, true
}

// Put stores bytes for key, evicting LRU entries until the cache is back
// within its configured bound.
func (c *Cache) Put(key core.VariantKey, data []byte) {
	k := keyString(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(k, data)
}

func (c *Cache) putLocked(k string, data []byte) {
	if el, ok := c.items[k]; ok {
		old := el.Value.(*entry)
		c.size -= int64(len(old.bytes))
		old.bytes = data
		c.size += int64(len(data))
		c.order.MoveToFront(el)
		c.evict()
		return
	}

	el := c.order.PushFront(&entry{key: k, bytes: data})
	c.items[k] = el
	c.size += int64(len(data))
	c.evict()
}

func (c *Cache) evict() {
	switch c.cfg.Mode {
	case ModeCount:
		for int64(c.order.Len()) > c.cfg.Limit && c.order.Len() > 0 {
			c.evictOldest()
		}
	case ModeCapacity:
		for c.size > c.cfg.Limit && c.order.Len() > 0 {
			c.evictOldest()
		}
	}
}

func (c *Cache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	e := el.Value.(*entry)
	c.size -= int64(len(e.bytes))
	c.order.Remove(el)
	delete(c.items, e.key)
}

// Producer computes the bytes for a missing key. Invoked at most once per
// concurrent wave of callers sharing the same key.
type Producer func(ctx context.Context) ([]byte, error)

// GetOrCompute returns the cached bytes for key, computing them via produce
// on a miss. Concurrent callers racing on the same key observe exactly one
// invocation of produce; all receive its result. A failed produce is not
// cached — the error propagates to every waiter and the next caller retries.
func (c *Cache) GetOrCompute(ctx context.Context, key core.VariantKey, produce Producer) ([]byte, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}

	k := keyString(key)
	v, err, _ := c.sf.Do(k, func() (interface{}, error) {
		data, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// InvalidatePrefix removes every cached entry whose path starts with
// prefix, e.g. an image's "bucket/image_id/" directory.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, el := range c.items {
		if strings.HasPrefix(k, prefix) {
			e := el.Value.(*entry)
			c.size -= int64(len(e.bytes))
			c.order.Remove(el)
			delete(c.items, k)
		}
	}
}
