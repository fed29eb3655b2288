package hermes

import (
	"time"

	"github.com/bsc-ssrg/hermes/registry"
)

// Handle is the RPC handle: a move-only (in Go: single-owner, used-once)
// container of one execution context per target. Get() drives per-future
// timeout/retry and returns the vector of outputs.
type Handle struct {
	engine     *Engine
	descriptor *registry.Descriptor
	ctxs       []*execContext
}

type indexedResult struct {
	idx int
	res execResult
}

// Get waits on every context's future, retrying timed-out attempts up to
// the engine's retry policy, and returns outputs in the order futures
// become ready. For request types declared one-way, Get
// fails explicitly and does not wait (testable property 7).
func (h *Handle) Get() ([]any, error) {
	if !h.descriptor.RequiresResponse {
		return nil, &ErrNoResponseExpected{RequestType: h.descriptor.Name}
	}
	n := len(h.ctxs)
	out := make(chan indexedResult, n)
	for i, ctx := range h.ctxs {
		go h.engine.waitOne(ctx, i, out)
	}

	results := make([]any, 0, n)
	var firstErr error
	for k := 0; k < n; k++ {
		r := <-out
		if r.res.err != nil {
			if firstErr == nil {
				firstErr = r.res.err
			}
			continue
		}
		results = append(results, r.res.output)
	}
	return results, firstErr
}

// Close releases every context's resources. For request types requiring a
// response, the RPC handle destructor must drain the futures; for one-way types it must not attempt to await (already destroyed
// by the dispatcher-less forward-completion path as soon as the single
// forward call finishes, since one-way contexts never carry a response
// wait).
func (h *Handle) Close() {
	if h.descriptor.RequiresResponse {
		_, _ = h.Get()
		return
	}
	for _, ctx := range h.ctxs {
		ctx.destroy()
	}
}

// waitOne is the per-future retry loop: wait up to one per-attempt
// timeout; on timeout, either repost (if retries remain, via native
// cancel; the repost itself happens inside onForwardComplete when the
// resulting cancelled completion arrives) or give up and cancel for
// good.
func (e *Engine) waitOne(ctx *execContext, idx int, out chan<- indexedResult) {
	timeout := e.opts.RetryPolicy.PerAttemptTimeout
	for {
		select {
		case res := <-ctx.promise:
			out <- indexedResult{idx: idx, res: res}
			return
		case <-time.After(timeout):
			if ctx.retriesLeft > 0 {
				ctx.retriesLeft--
				ctx.setStatus(statusTimeout)
			} else {
				ctx.setStatus(statusCancelled)
			}
			if ctx.nativeHandle != nil {
				_ = e.driver.Cancel(ctx.nativeHandle)
			}
		}
	}
}
