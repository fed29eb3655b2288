package hermes

import (
	"sync"

	"github.com/bsc-ssrg/hermes/xport"
)

// addrCache maps textual transport-qualified address to a shared
// xport.Address. Entries are never invalidated while the
// engine is alive; cleared wholesale on engine destruction.
type addrCache struct {
	mu sync.Mutex
	m  map[string]xport.Address
}

func newAddrCache() *addrCache {
	return &addrCache{m: make(map[string]xport.Address)}
}

// get returns a cloned reference to the cached address for key, if
// present, bumping its refcount (testable property 2: address cache
// idempotence).
func (c *addrCache) get(key string) (xport.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.m[key]
	if !ok {
		return xport.Address{}, false
	}
	return a.Clone(), true
}

// put inserts a freshly looked-up address under key. Only the cache mutex
// may be held while touching the map.
func (c *addrCache) put(key string, a xport.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = a
}

// clear releases every cached address and empties the map; called once
// from Engine.Close.
func (c *addrCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.m {
		a.Release()
	}
	c.m = make(map[string]xport.Address)
}
