package hermes

import (
	"sync/atomic"

	"github.com/bsc-ssrg/hermes/registry"
	"github.com/bsc-ssrg/hermes/xport"
)

// Request is the target-side request: it owns a decoded input, the
// native handle used to respond, and the requires-response flag copied
// from the request type's static declaration.
type Request struct {
	engine     *Engine
	descriptor *registry.Descriptor
	native     xport.Handle
	input      any

	requiresResponse bool
	destroyed        atomic.Bool

	// refs counts outstanding owners of this Request: one held by the
	// dispatcher while the handler runs, plus one per in-flight
	// AsyncPull/AsyncPush started by the handler before it returned. The
	// handler frequently returns before a bulk transfer's completion
	// callback fires (scenarios S3/S4: respond() happens from inside that
	// callback), so destroy() must wait for every ref to drop rather than
	// firing the moment the dispatcher's call to the handler returns.
	refs atomic.Int32
}

func newRequest(e *Engine, d *registry.Descriptor, h xport.Handle, input any) *Request {
	r := &Request{
		engine:           e,
		descriptor:       d,
		native:           h,
		input:            input,
		requiresResponse: d.RequiresResponse,
	}
	r.refs.Store(1)
	return r
}

// retain registers one more pending async operation against this request,
// deferring destruction until it is released.
func (r *Request) retain() { r.refs.Add(1) }

// release drops one reference; the native handle is destroyed exactly
// once, when the last reference drops.
func (r *Request) release() {
	if r.refs.Add(-1) == 0 {
		r.destroy()
	}
}

// Input returns the decoded input object. Callers type-assert to the
// concrete request type's input struct.
func (r *Request) Input() any { return r.input }

func (r *Request) RequiresResponse() bool { return r.requiresResponse }

// NativeHandle exposes the native handle for use by AsyncPull/AsyncPush
// and Respond.
func (r *Request) NativeHandle() xport.Handle { return r.native }

// destroy destroys the native handle exactly once.
// There is no separate "free the serialized input through the native
// layer" step in this stand-in: the serialized bytes here are an
// ordinary Go []byte already owned by this Request's caller, collected by
// the garbage collector, not a native-layer allocation requiring an
// explicit free call.
func (r *Request) destroy() {
	if !r.destroyed.CompareAndSwap(false, true) {
		return
	}
	if r.native != nil {
		r.engine.driver.DestroyHandle(r.native)
	}
}
