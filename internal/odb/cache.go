package odb

import (
	"container/list"
	"sync"

	"github.com/treedata/treeobj"
)

// lruCache is a size-bounded object cache. Reads promote, writes evict
// from the cold end. A max of 0 disables caching entirely.
type lruCache struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[treeobj.Digest]*list.Element
}

type lruEntry struct {
	oid  treeobj.Digest
	data []byte
}

func newLRUCache(max int) *lruCache {
	return &lruCache{
		max:   max,
		order: list.New(),
		items: make(map[treeobj.Digest]*list.Element),
	}
}

func (c *lruCache) Get(oid treeobj.Digest) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[oid]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).data, true
}

func (c *lruCache) Add(oid treeobj.Digest, data []byte) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[oid]; ok {
		c.order.MoveToFront(el)
		return
	}
	for len(c.items) >= c.max {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).oid)
	}
	c.items[oid] = c.order.PushFront(&lruEntry{oid: oid, data: data})
}

func (c *lruCache) Has(oid treeobj.Digest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[oid]
	return ok
}

func (c *lruCache) Remove(oid treeobj.Digest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[oid]; ok {
		c.order.Remove(el)
		delete(c.items, oid)
	}
}
