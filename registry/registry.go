// Package registry implements the process-wide request-type registry: a
// singleton mapping numeric request id to its descriptor. Registration is
// idempotent for byte-identical metadata and fails on conflicting
// re-registration with the same id.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package registry

import (
	"fmt"
	"sync"
)

var (
	mu   sync.RWMutex
	byID = map[uint16]*Descriptor{}
)

// Register adds d to the process-wide registry. Re-registering the same
// id with byte-identical metadata (name, requires-response flag, and the
// presence/absence of each codec callback) is a no-op
// that returns the existing descriptor. Conflicting metadata on the same
// id is an error.
func Register(d *Descriptor) (*Descriptor, error) {
	if d == nil {
		return nil, fmt.Errorf("registry: nil descriptor")
	}
	mu.Lock()
	defer mu.Unlock()

	existing, ok := byID[d.ID]
	if !ok {
		byID[d.ID] = d
		return d, nil
	}
	if !existing.sameMetadata(d) {
		return nil, fmt.Errorf("registry: conflicting registration for request id %d (name %q vs %q)",
			d.ID, existing.Name, d.Name)
	}
	return existing, nil
}

// Lookup returns the descriptor for id, if registered.
func Lookup(id uint16) (*Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := byID[id]
	return d, ok
}

// All returns a snapshot of every registered descriptor, for engine
// startup iteration.
func All() []*Descriptor {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]*Descriptor, 0, len(byID))
	for _, d := range byID {
		out = append(out, d)
	}
	return out
}

// reset clears the registry; unexported, and used by this package's
// _test.go files so each test starts from a clean slate.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	byID = map[uint16]*Descriptor{}
}
