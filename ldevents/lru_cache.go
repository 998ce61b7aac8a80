package ldevents

import "container/list"

// lruCache is a fixed-capacity, insertion-ordered cache of keys. It is the concrete
// implementation of the user-dedup cache described for the event summarizer: entries
// are evicted in least-recently-inserted order once capacity is exceeded, and re-inserting
// an existing key promotes it to most-recently-inserted without growing the cache.
//
// lruCache is not safe for concurrent use; callers must serialize access.
type lruCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently inserted, back = least recently inserted
}

func newLruCache(capacity int) lruCache {
	return lruCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// put inserts key if absent, evicting the oldest entry if capacity would be exceeded, and
// promotes key to most-recently-inserted if it is already present. It returns true if the
// key was already present.
func (c *lruCache) put(key string) bool {
	if c.capacity <= 0 {
		return false
	}
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		return true
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(string))
		}
	}
	c.entries[key] = c.order.PushFront(key)
	return false
}

// get reports whether key is present, without altering its position.
func (c *lruCache) get(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// clear empties the cache.
func (c *lruCache) clear() {
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// add is a convenience alias for put, matching the call sites in the event dispatcher that
// only care about "have I seen this key before".
func (c *lruCache) add(key string) bool {
	return c.put(key)
}
