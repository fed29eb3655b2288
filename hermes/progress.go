package hermes

import (
	"errors"

	"github.com/bsc-ssrg/hermes/cmn/nlog"
	"github.com/bsc-ssrg/hermes/xport"
)

// progressLoop is the concurrency heart of the engine: drain ready
// completion callbacks in a tight inner loop until none fire or shutdown is
// observed, then block in native progress for a bounded interval.
// Unexpected errors are fatal; ErrProgressTimeout is expected and benign.
// All forward-completion, bulk-completion, and dispatcher callbacks run on
// this goroutine.
func (e *Engine) progressLoop() {
	defer close(e.doneCh)
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		for e.driver.Trigger() > 0 {
			select {
			case <-e.stopCh:
				return
			default:
			}
		}

		err := e.driver.Progress(e.progressTimeout())
		switch {
		case err == nil:
		case errors.Is(err, xport.ErrProgressTimeout):
		case errors.Is(err, xport.ErrDriverClosed):
			return
		default:
			nlog.Fatalf("hermes: fatal progress error: %v", err)
			return
		}
	}
}
