package xport

import "sync/atomic"

// addrImpl is the native address descriptor: an opaque driver-specific
// handle plus a shared refcount, freed exactly once when the last owner
// drops it.
type addrImpl struct {
	text   string // normalized textual address
	native any    // driver-specific resolved handle (here: a dialable net addr)
	driver Driver
	refc   int32
}

// Address is a value type wrapping a shared, refcounted native address.
// Copying an Address does not by itself bump the refcount; callers that
// want to extend the native address's lifetime call Clone() explicitly.
type Address struct {
	impl *addrImpl
}

func newAddress(text string, native any, d Driver) Address {
	return Address{impl: &addrImpl{text: text, native: native, driver: d, refc: 1}}
}

// NewAddress constructs a fresh, singly-owned Address wrapping a
// driver-resolved native handle. Exported for use by the engine layer
// above this package (lookup/self_address results).
func NewAddress(text string, native any, d Driver) Address {
	return newAddress(text, native, d)
}

// Clone bumps the refcount and returns another owning handle to the same
// native address.
func (a Address) Clone() Address {
	if a.impl == nil {
		return a
	}
	atomic.AddInt32(&a.impl.refc, 1)
	return Address{impl: a.impl}
}

// Release drops one reference; when the count reaches zero the native
// address is freed through the owning driver exactly once.
func (a Address) Release() {
	if a.impl == nil {
		return
	}
	if atomic.AddInt32(&a.impl.refc, -1) == 0 {
		a.impl.driver.FreeAddress(a.impl.native)
	}
}

func (a Address) Valid() bool { return a.impl != nil }

func (a Address) String() string {
	if a.impl == nil {
		return "<invalid-address>"
	}
	return a.impl.text
}

func (a Address) RefCount() int32 {
	if a.impl == nil {
		return 0
	}
	return atomic.LoadInt32(&a.impl.refc)
}

// Native returns the driver-specific resolved handle (e.g. a dialable
// network address), for use by the driver that produced it.
func (a Address) Native() any {
	if a.impl == nil {
		return nil
	}
	return a.impl.native
}

// Driver returns the driver that owns this address's native handle.
func (a Address) Driver() Driver {
	if a.impl == nil {
		return nil
	}
	return a.impl.driver
}
