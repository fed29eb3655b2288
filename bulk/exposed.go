// Package bulk implements the Go-side wrapper around one-sided RDMA bulk
// memory transfer: registering local buffers with the native transport
// layer (xport.Driver), and reference-counting the resulting handle so
// that concurrent pull/push callers and the owning request can release it
// independently.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package bulk

import (
	"fmt"
	"sync/atomic"

	"github.com/bsc-ssrg/hermes/memsys"
	"github.com/bsc-ssrg/hermes/xport"
)

// ExposedMemory is a refcounted handle to one or more locally registered
// memory segments. Exactly one owner, whoever drops the last reference,
// triggers the native driver's BulkRelease and returns any memsys-backed
// buffers to their slabs.
type ExposedMemory struct {
	handle xport.BulkHandle
	driver xport.Driver
	bufs   [][]byte
	owned  []*memsys.Buf // non-nil entries came from memsys and must be freed
	mode   xport.AccessMode
	refc   int32
}

// Expose registers caller-supplied buffers for one-sided transfer. The
// caller retains ownership of bufs; Expose does not copy or free them.
func Expose(driver xport.Driver, bufs [][]byte, mode xport.AccessMode) (*ExposedMemory, error) {
	if len(bufs) == 0 {
		return nil, fmt.Errorf("bulk: cannot expose zero segments")
	}
	h, err := driver.BulkCreate(bufs, mode)
	if err != nil {
		return nil, fmt.Errorf("bulk: expose: %w", err)
	}
	return &ExposedMemory{handle: h, driver: driver, bufs: bufs, mode: mode, refc: 1}, nil
}

// Alloc allocates fresh, memsys-backed buffers of the given sizes and
// exposes them, for callers that don't already hold application buffers
// (e.g. the target side of an async_pull, before the transfer lands).
func Alloc(mm *memsys.MMSA, driver xport.Driver, sizes []int64, mode xport.AccessMode) (*ExposedMemory, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("bulk: cannot allocate zero segments")
	}
	bufs := make([][]byte, len(sizes))
	owned := make([]*memsys.Buf, len(sizes))
	for i, sz := range sizes {
		b := mm.AllocSize(sz)
		owned[i] = b
		bufs[i] = b.Bytes()
	}
	h, err := driver.BulkCreate(bufs, mode)
	if err != nil {
		for _, b := range owned {
			b.Free()
		}
		return nil, fmt.Errorf("bulk: alloc: %w", err)
	}
	return &ExposedMemory{handle: h, driver: driver, bufs: bufs, owned: owned, mode: mode, refc: 1}, nil
}

// Clone bumps the refcount and returns another owning handle to the same
// exposed memory.
func (e *ExposedMemory) Clone() *ExposedMemory {
	atomic.AddInt32(&e.refc, 1)
	return e
}

// Release drops one reference; at zero it releases the native bulk handle
// and frees any memsys-owned buffers exactly once.
func (e *ExposedMemory) Release() {
	if atomic.AddInt32(&e.refc, -1) > 0 {
		return
	}
	e.driver.BulkRelease(e.handle)
	for _, b := range e.owned {
		if b != nil {
			b.Free()
		}
	}
}

func (e *ExposedMemory) RefCount() int32 { return atomic.LoadInt32(&e.refc) }

func (e *ExposedMemory) Handle() xport.BulkHandle { return e.handle }
func (e *ExposedMemory) Mode() xport.AccessMode    { return e.mode }
func (e *ExposedMemory) Size() int64                { return e.handle.Size }

// Bytes returns views into the underlying segments. Valid only while the
// caller holds a reference; do not retain past Release.
func (e *ExposedMemory) Bytes() [][]byte { return e.bufs }

// ToWire serializes the bulk handle for inclusion in an RPC payload. The
// conversion bumps the refcount for its duration, so a concurrent Release
// from another owner can't free the handle out from under the
// serialization; the extra reference is dropped again before ToWire
// returns.
func (e *ExposedMemory) ToWire() ([]byte, error) {
	e.Clone()
	defer e.Release()
	return e.driver.BulkToWire(e.handle)
}

// ToRef is the same conversion as ToWire, returning the lighter-weight
// xport.BulkRef used when a request record embeds the handle directly as
// a field rather than as an opaque blob.
func (e *ExposedMemory) ToRef() xport.BulkRef {
	e.Clone()
	defer e.Release()
	return e.handle.ToRef()
}

// FromWire reconstructs a remote bulk handle reference for use as the
// origin side of a pull/push. The returned xport.BulkHandle owns no local
// buffers and carries no refcount; this is the "remote descriptor", not a
// Go-side owner.
func FromWire(driver xport.Driver, wire []byte) (xport.BulkHandle, error) {
	return driver.BulkFromWire(wire)
}
