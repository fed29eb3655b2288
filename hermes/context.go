package hermes

import (
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/bsc-ssrg/hermes/bulk"
	"github.com/bsc-ssrg/hermes/registry"
	"github.com/bsc-ssrg/hermes/xport"
)

type ctxStatus int32

const (
	statusCreated ctxStatus = iota
	statusFailed
	statusTimeout
	statusCancelled
)

// execResult is what a future delivers: the typed output (on success) or
// an error.
type execResult struct {
	output any
	err    error
}

// execContext is per-posted-request state pinned inside the owning Handle
// for the duration of the native submission, so serialized input bytes
// outlive the forward call.
type execContext struct {
	engine     *Engine
	descriptor *registry.Descriptor
	endpoint   xport.Address // cloned; released on destroy

	nativeHandle xport.Handle
	serialized   []byte     // owned input, kept alive until forward completion
	bulkRef      *bulk.ExposedMemory // released by destroy when non-nil; Post and Broadcast never set it

	status  atomic.Int32 // ctxStatus
	promise chan execResult

	retriesLeft int
	destroyed   atomic.Bool

	span trace.Span // set by serializeAndForward when tracing is active
}

func newExecContext(e *Engine, d *registry.Descriptor, ep xport.Address, serialized []byte, retries int) *execContext {
	ctx := &execContext{
		engine:      e,
		descriptor:  d,
		endpoint:    ep,
		serialized:  serialized,
		promise:     make(chan execResult, 1),
		retriesLeft: retries,
	}
	ctx.status.Store(int32(statusCreated))
	return ctx
}

func (c *execContext) setStatus(s ctxStatus) { c.status.Store(int32(s)) }
func (c *execContext) getStatus() ctxStatus  { return ctxStatus(c.status.Load()) }

// destroy releases the native handle and the endpoint reference exactly
// once, regardless of how many code paths race to call it (forward
// completion vs. a concurrent Get() timeout path never both destroy).
func (c *execContext) destroy() {
	if !c.destroyed.CompareAndSwap(false, true) {
		return
	}
	if c.nativeHandle != nil {
		c.engine.driver.DestroyHandle(c.nativeHandle)
	}
	c.endpoint.Release()
	if c.bulkRef != nil {
		c.bulkRef.Release()
	}
}

func (c *execContext) fulfil(output any, err error) {
	select {
	case c.promise <- execResult{output: output, err: err}:
	default:
		// promise already fulfilled; exactly one set_value/set_exception
		// per context is guaranteed by construction, so this is
		// unreachable in correct operation and silently dropped rather
		// than panicking.
	}
}
