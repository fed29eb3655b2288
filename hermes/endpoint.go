package hermes

import "github.com/bsc-ssrg/hermes/xport"

// Endpoint wraps a shared xport.Address.
type Endpoint struct {
	addr xport.Address
}

func (e Endpoint) Valid() bool    { return e.addr.Valid() }
func (e Endpoint) String() string { return e.addr.String() }

// Release drops the caller's reference to the underlying address. The
// address cache itself holds an independent reference for the engine's
// lifetime, so releasing an Endpoint never invalidates the cache entry.
func (e Endpoint) Release() { e.addr.Release() }

// EndpointSet is the result of a multi-address lookup, deduplicated by
// textual address.
type EndpointSet struct {
	endpoints []Endpoint
}

func (s EndpointSet) Len() int                { return len(s.endpoints) }
func (s EndpointSet) At(i int) Endpoint       { return s.endpoints[i] }
func (s EndpointSet) All() []Endpoint         { return s.endpoints }
