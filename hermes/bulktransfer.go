package hermes

import (
	"github.com/bsc-ssrg/hermes/bulk"
	"github.com/bsc-ssrg/hermes/xport"
)

// BulkCallback receives the still-alive Request (so the handler may still
// call Respond) and any transfer error.
type BulkCallback func(req *Request, err error)

// AsyncPull initiates a pull from originMemory (the remote-exposed bulk
// referenced by the decoded input) into localMemory, completing
// asynchronously on the progress thread. The transfer size
// is the origin bulk's size; zero fails synchronously.
func (e *Engine) AsyncPull(originMemory xport.BulkHandle, localMemory *bulk.ExposedMemory, req *Request, cb BulkCallback) error {
	return e.bulkTransfer(xport.Pull, originMemory, localMemory, req, cb)
}

// AsyncPush initiates a push of localMemory's bytes into originMemory (the
// remote-exposed bulk referenced by the decoded input).
func (e *Engine) AsyncPush(localMemory *bulk.ExposedMemory, originMemory xport.BulkHandle, req *Request, cb BulkCallback) error {
	return e.bulkTransfer(xport.Push, originMemory, localMemory, req, cb)
}

func (e *Engine) bulkTransfer(dir xport.Direction, origin xport.BulkHandle, local *bulk.ExposedMemory, req *Request, cb BulkCallback) error {
	if origin.Size == 0 {
		return xport.ErrBulkZeroSize
	}

	req.retain()
	err := e.driver.BulkTransfer(req.NativeHandle(), dir, origin, local.Handle(), func(err error) {
		defer req.release()
		if err != nil {
			// On failure, drop the transfer context without
			// invoking the user callback; the request is released by the
			// deferred req.release() above, which in turn destroys the
			// native handle once no other reference remains.
			e.stats.bulkFailed.Inc()
			return
		}
		e.stats.bulkOK.Inc()
		cb(req, nil)
	})
	if err != nil {
		req.release()
		return err
	}
	return nil
}
