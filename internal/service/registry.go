package service

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// ClientRegistry keeps one ClientSession per browser client in an LRU with an
// idle TTL. An evicted client is rebuilt on its next request; its persisted
// token survives eviction, so the rebuilt AuthService resolves it again.
// Concurrency: methods are safe for concurrent use.
type ClientRegistry struct {
	mu      sync.Mutex
	cap     int
	idleTTL time.Duration
	ll      *list.List               // front = most-recently used
	items   map[string]*list.Element // client id -> element
	build   func(clientID string) *ClientSession
	now     func() time.Time
	created atomic.Uint64
	evicts  atomic.Uint64
}

type registryEntry struct {
	id       string
	session  *ClientSession
	lastSeen time.Time
}

// ClientRegistryConfig groups constructor options (<=3 params rule).
type ClientRegistryConfig struct {
	Capacity int
	// IdleTTL evicts clients not seen for this long; <= 0 disables idle eviction.
	IdleTTL time.Duration
	// Build constructs the session for a client seen for the first time. Required.
	Build func(clientID string) *ClientSession
	Now   func() time.Time
}

// NewClientRegistry creates a registry with the given config.
func NewClientRegistry(cfg ClientRegistryConfig) *ClientRegistry {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 10000
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &ClientRegistry{
		cap:     capacity,
		idleTTL: cfg.IdleTTL,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
		build:   cfg.Build,
		now:     nowFn,
	}
}

// Get returns the client's session, building it on first sight or after eviction.
func (c *ClientRegistry) Get(clientID string) *ClientSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, found := c.items[clientID]; found {
		ent, _ := el.Value.(*registryEntry)
		if ent != nil && !c.isIdle(ent, now) {
			ent.lastSeen = now
			c.ll.MoveToFront(el)
			return ent.session
		}
		c.removeElement(el)
	}

	sess := c.build(clientID)
	el := c.ll.PushFront(&registryEntry{id: clientID, session: sess, lastSeen: now})
	c.items[clientID] = el
	c.created.Add(1)
	c.evictIfNeeded(now)
	return sess
}

// Remove drops the client's entry and returns its session. The persisted
// token is left alone; callers that retire the client clear it themselves.
func (c *ClientRegistry) Remove(clientID string) (*ClientSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, found := c.items[clientID]
	if !found {
		return nil, false
	}
	c.removeElement(el)
	ent, _ := el.Value.(*registryEntry)
	if ent == nil {
		return nil, false
	}
	return ent.session, true
}

// Len returns the number of live clients.
func (c *ClientRegistry) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// ClientRegistryStats are simple counters for observability.
type ClientRegistryStats struct {
	Created, Evictions uint64
	Size, Capacity     int
}

// Stats returns a snapshot of counters and sizes.
func (c *ClientRegistry) Stats() ClientRegistryStats {
	return ClientRegistryStats{
		Created:   c.created.Load(),
		Evictions: c.evicts.Load(),
		Size:      c.Len(),
		Capacity:  c.cap,
	}
}

// Close waits for background work of every live client.
func (c *ClientRegistry) Close() {
	c.mu.Lock()
	sessions := make([]*ClientSession, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		if ent, ok := el.Value.(*registryEntry); ok {
			sessions = append(sessions, ent.session)
		}
	}
	c.mu.Unlock()
	for _, s := range sessions {
		if s != nil && s.Auth != nil {
			s.Auth.Wait()
		}
	}
}

// Sweep drops idle clients and returns how many were removed. Get already
// evicts lazily; Sweep lets a background runner reclaim memory on quiet servers.
func (c *ClientRegistry) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.ll.Len()
	c.evictIfNeeded(c.now())
	return before - c.ll.Len()
}

// Helpers (caller must hold c.mu).
func (c *ClientRegistry) isIdle(e *registryEntry, now time.Time) bool {
	return c.idleTTL > 0 && now.Sub(e.lastSeen) > c.idleTTL
}

func (c *ClientRegistry) removeElement(el *list.Element) {
	c.ll.Remove(el)
	if ent, ok := el.Value.(*registryEntry); ok {
		delete(c.items, ent.id)
	}
}

func (c *ClientRegistry) evictIfNeeded(now time.Time) {
	// Idle entries collect at the back.
	for el := c.ll.Back(); el != nil; {
		ent, _ := el.Value.(*registryEntry)
		if ent == nil || !c.isIdle(ent, now) {
			break
		}
		prev := el.Prev()
		c.removeElement(el)
		c.evicts.Add(1)
		el = prev
	}
	for c.ll.Len() > c.cap {
		el := c.ll.Back()
		if el == nil {
			return
		}
		c.removeElement(el)
		c.evicts.Add(1)
	}
}
