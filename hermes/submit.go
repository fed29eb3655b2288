package hermes

import (
	"context"
	"fmt"

	"github.com/bsc-ssrg/hermes/registry"
	"github.com/bsc-ssrg/hermes/xport"
)

// Post constructs a single-target RPC handle, serializes input via rpcID's
// registered codec, and submits it. On submit failure, the
// returned context's status is "failed" and the promise is already
// fulfilled with the error; Post also returns that error directly so
// synchronous failures don't require a Get() round trip to observe.
func (e *Engine) Post(rpcID uint16, ep Endpoint, input any) (*Handle, error) {
	d, ok := registry.Lookup(rpcID)
	if !ok {
		return nil, &ErrConfiguration{Msg: fmt.Sprintf("post: request type %d was never registered", rpcID)}
	}
	e.stats.posts.Inc()
	ctx, err := e.submit(d, ep)
	if err != nil {
		return &Handle{engine: e, descriptor: d, ctxs: []*execContext{ctx}}, err
	}
	if serr := e.serializeAndForward(d, ctx, input); serr != nil {
		return &Handle{engine: e, descriptor: d, ctxs: []*execContext{ctx}}, serr
	}
	return &Handle{engine: e, descriptor: d, ctxs: []*execContext{ctx}}, nil
}

// Broadcast submits the same request to every endpoint in the set. On a
// submit failure part-way through, already-submitted native handles are
// cancelled and marked cancelled; the handle still carries every context,
// partial-failure included.
func (e *Engine) Broadcast(rpcID uint16, eps EndpointSet, input any) (*Handle, error) {
	d, ok := registry.Lookup(rpcID)
	if !ok {
		return nil, &ErrConfiguration{Msg: fmt.Sprintf("broadcast: request type %d was never registered", rpcID)}
	}
	e.stats.broadcasts.Inc()
	h := &Handle{engine: e, descriptor: d}
	for _, ep := range eps.All() {
		ctx, err := e.submit(d, ep)
		h.ctxs = append(h.ctxs, ctx)
		if err != nil {
			e.cancelRemaining(h, d, err)
			return h, err
		}
		if serr := e.serializeAndForward(d, ctx, input); serr != nil {
			e.cancelRemaining(h, d, serr)
			return h, serr
		}
	}
	return h, nil
}

// cancelRemaining implements the broadcast partial-submit-failure rule:
// every already-submitted context (including the one that just failed,
// which is a no-op if it never had a handle) is marked cancelled.
func (e *Engine) cancelRemaining(h *Handle, d *registry.Descriptor, cause error) {
	for _, ctx := range h.ctxs {
		if ctx.getStatus() == statusCreated && ctx.nativeHandle != nil {
			ctx.setStatus(statusCancelled)
			e.stats.cancels.Inc()
			_ = e.driver.Cancel(ctx.nativeHandle)
		}
	}
}

// submit creates the native handle and the execution context, without yet
// forwarding anything (so a Post/Broadcast failure path has a context to
// attach to the returned Handle).
func (e *Engine) submit(d *registry.Descriptor, ep Endpoint) (*execContext, error) {
	nh, err := e.driver.CreateHandle(ep.addr)
	if err != nil {
		failed := newExecContext(e, d, ep.addr.Clone(), nil, e.opts.RetryPolicy.MaxRetries)
		failed.setStatus(statusFailed)
		failed.fulfil(nil, &ErrNativeFailure{Op: "create_handle", Err: err})
		return failed, &ErrNativeFailure{Op: "create_handle", Err: err}
	}
	ctx := newExecContext(e, d, ep.addr.Clone(), nil, e.opts.RetryPolicy.MaxRetries)
	ctx.nativeHandle = nh
	return ctx, nil
}

// serializeAndForward encodes input, applies the margo breadcrumb if
// enabled, and calls the native forward operation whose completion
// callback drives ctx through its state machine.
func (e *Engine) serializeAndForward(d *registry.Descriptor, ctx *execContext, input any) error {
	_, ctx.span = startSubmitSpan(context.Background(), "post", d.Name)

	raw, err := d.EncodeInput(input)
	if err != nil {
		ctx.destroy()
		err = fmt.Errorf("hermes: encode input for %q: %w", d.Name, err)
		endSpanForStatus(ctx.span, err)
		ctx.fulfil(nil, err)
		return err
	}
	ctx.serialized = e.withBreadcrumb(raw)
	if err := e.forward(d, ctx); err != nil {
		ctx.destroy()
		werr := &ErrNativeFailure{Op: "forward", Err: err}
		endSpanForStatus(ctx.span, werr)
		ctx.fulfil(nil, werr)
		return werr
	}
	return nil
}

// forward calls the native forward operation; it neither destroys ctx nor
// fulfils its promise on error. Callers decide how to report that, since
// the initial submit path and the timeout-triggered repost path surface
// a forward failure differently.
func (e *Engine) forward(d *registry.Descriptor, ctx *execContext) error {
	return e.driver.Forward(ctx.nativeHandle, d.ID, ctx.serialized, func(status xport.Status, payload []byte, nativeErr error) {
		e.onForwardComplete(ctx, status, payload, nativeErr)
	})
}

// onForwardComplete is the completion callback state machine, invoked on
// the progress thread exactly once per native forward attempt.
func (e *Engine) onForwardComplete(ctx *execContext, status xport.Status, payload []byte, nativeErr error) {
	switch status {
	case xport.StatusCancelled:
		switch ctx.getStatus() {
		case statusTimeout:
			e.stats.reposts.Inc()
			if err := e.forward(ctx.descriptor, ctx); err != nil {
				ctx.destroy()
				ctx.fulfil(nil, &ErrRepostFailed{Err: err})
			}
		case statusCancelled:
			e.stats.timeouts.Inc()
			err := &ErrTimedOut{RequestType: ctx.descriptor.Name}
			ctx.destroy()
			endSpanForStatus(ctx.span, err)
			ctx.fulfil(nil, err)
		default:
			err := &ErrInconsistentState{Detail: "cancelled completion with no pending timeout/cancel intent"}
			ctx.destroy()
			endSpanForStatus(ctx.span, err)
			ctx.fulfil(nil, err)
		}
	case xport.StatusError:
		msg := "unknown native error"
		if nativeErr != nil {
			msg = nativeErr.Error()
		}
		err := &ErrRequestFailed{Native: msg}
		ctx.destroy()
		endSpanForStatus(ctx.span, err)
		ctx.fulfil(nil, err)
	default: // success
		if ctx.descriptor.RequiresResponse {
			out, err := ctx.descriptor.DecodeOutput(payload)
			if err != nil {
				werr := fmt.Errorf("hermes: decode output for %q: %w", ctx.descriptor.Name, err)
				ctx.destroy()
				endSpanForStatus(ctx.span, werr)
				ctx.fulfil(nil, werr)
				return
			}
			ctx.destroy()
			endSpanForStatus(ctx.span, nil)
			ctx.fulfil(out, nil)
		} else {
			ctx.destroy()
			endSpanForStatus(ctx.span, nil)
			ctx.fulfil(nil, nil)
		}
	}
}
