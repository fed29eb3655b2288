package hermes

import (
	"github.com/bsc-ssrg/hermes/cmn/nlog"
	"github.com/bsc-ssrg/hermes/registry"
	"github.com/bsc-ssrg/hermes/xport"
)

// installDispatchers registers one native dispatcher stub per known
// request type.
func (e *Engine) installDispatchers(listen bool) {
	if !listen {
		return
	}
	for _, d := range registry.All() {
		d := d
		e.driver.RegisterDispatcher(d.ID, func(h xport.Handle, rpcID uint16, payload []byte) {
			e.dispatchRequest(d, h, payload)
		})
	}
}

// dispatchRequest is the dispatcher stub: locate the descriptor (already
// known, since the registry lookup happened at RegisterDispatcher time),
// decode the input, construct the target-side Request, invoke the user
// handler. Runs on the progress thread.
func (e *Engine) dispatchRequest(d *registry.Descriptor, h xport.Handle, payload []byte) {
	e.stats.dispatched.Inc()
	input, err := d.DecodeInput(e.stripBreadcrumb(payload))
	if err != nil {
		nlog.Errorf("hermes: decode input for %q: %v", d.Name, err)
		e.driver.DestroyHandle(h)
		return
	}

	req := newRequest(e, d, h, input)

	fn, ok := d.UserHandler()
	if !ok {
		nlog.Errorf("hermes: %v", &ErrUnregisteredHandler{RequestType: d.Name})
		req.release()
		return
	}

	defer func() {
		req.release()
		if r := recover(); r != nil {
			// An uncaught panic from a user handler is not recovered
			// here beyond ensuring the target-side request object is
			// still destroyed: release() above already dropped the
			// dispatcher's reference before the repanic below.
			panic(r)
		}
	}()
	fn(req)
}
