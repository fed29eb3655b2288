package commands

import (
	"os"
	"sync/atomic"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/cmn/nlog"
	"github.com/bsc-ssrg/hermes/examples"
	"github.com/bsc-ssrg/hermes/xport"
)

// registerHandlers wires one handler per example scenario onto srv.
// S1/S2 use the generic RegisterHandlerT wrapper,
// which auto-responds when the handler returns; S3/S4 register through
// the lower-level Engine.RegisterHandler instead, because their Respond
// call has to happen from inside the bulk transfer's completion callback,
// after the handler itself has already returned (see request.go's refcount
// doc comment).
func registerHandlers(srv *hermes.Engine, shuttingDown *atomic.Bool) error {
	if err := hermes.RegisterHandlerT(srv, examples.SendMessage, handleSendMessage); err != nil {
		return err
	}
	if err := hermes.RegisterHandlerT(srv, examples.Shutdown, shutdownHandler(shuttingDown)); err != nil {
		return err
	}
	if err := srv.RegisterHandler(examples.SendBuffer.ID, sendBufferHandler(srv)); err != nil {
		return err
	}
	if err := srv.RegisterHandler(examples.RecvBuffer.ID, recvBufferHandler(srv)); err != nil {
		return err
	}
	return nil
}

// handleSendMessage implements scenario S1: the handler acknowledges the
// message and returns the length of the echoed string as retval.
func handleSendMessage(_ *hermes.Request, in examples.SendMessageIn) (examples.SendMessageOut, error) {
	nlog.Infof("hermesd: send_message: %q", in.Message)
	return examples.SendMessageOut{Retval: int32(len(in.Message))}, nil
}

// shutdownHandler implements scenario S2: a one-way request whose only
// effect is flipping shuttingDown so the serve loop's poll notices it.
func shutdownHandler(shuttingDown *atomic.Bool) func(*hermes.Request, examples.ShutdownIn) (examples.ShutdownOut, error) {
	return func(req *hermes.Request, _ examples.ShutdownIn) (examples.ShutdownOut, error) {
		nlog.Infof("hermesd: shutdown: requires_response=%v", req.RequiresResponse())
		shuttingDown.Store(true)
		return examples.ShutdownOut{}, nil
	}
}

// sendBufferHandler implements scenario S3: allocate local buffers sized
// from the origin bulk's segments, async_pull the client's source bytes
// into them, and respond from the pull's completion callback.
func sendBufferHandler(srv *hermes.Engine) func(any) {
	return func(reqAny any) {
		req := reqAny.(*hermes.Request)
		in, ok := req.Input().(examples.SendBufferIn)
		if !ok {
			nlog.Errorf("hermesd: send_buffer: unexpected input type")
			return
		}

		origin := xport.HandleFromRef(in.Buffers)
		local, err := srv.AllocExposed(origin.Segs, xport.AccessWriteOnly)
		if err != nil {
			nlog.Errorf("hermesd: send_buffer: alloc local buffers: %v", err)
			return
		}

		err = srv.AsyncPull(origin, local, req, func(req *hermes.Request, err error) {
			defer local.Release()
			if err != nil {
				nlog.Errorf("hermesd: send_buffer %q: pull failed: %v", in.Pathname, err)
				return
			}
			nlog.Infof("hermesd: send_buffer %q: pulled %d segment(s), %d bytes total",
				in.Pathname, len(local.Bytes()), local.Size())
			if rerr := hermes.Respond(req, examples.SendBufferOut{Retval: 42}); rerr != nil {
				nlog.Errorf("hermesd: send_buffer %q: respond: %v", in.Pathname, rerr)
			}
		})
		if err != nil {
			local.Release()
			nlog.Errorf("hermesd: send_buffer %q: async_pull: %v", in.Pathname, err)
		}
	}
}

// recvBufferHandler implements scenario S4: read the server-side file named
// by in.Pathname into memory, expose it read-only, and async_push its contents into
// the client's destination buffers.
func recvBufferHandler(srv *hermes.Engine) func(any) {
	return func(reqAny any) {
		req := reqAny.(*hermes.Request)
		in, ok := req.Input().(examples.RecvBufferIn)
		if !ok {
			nlog.Errorf("hermesd: recv_buffer: unexpected input type")
			return
		}

		data, err := os.ReadFile(in.Pathname)
		if err != nil {
			nlog.Errorf("hermesd: recv_buffer %q: read: %v", in.Pathname, err)
			return
		}
		source, err := srv.Expose([][]byte{data}, xport.AccessReadOnly)
		if err != nil {
			nlog.Errorf("hermesd: recv_buffer %q: expose: %v", in.Pathname, err)
			return
		}

		origin := xport.HandleFromRef(in.Buffers)
		err = srv.AsyncPush(source, origin, req, func(req *hermes.Request, err error) {
			defer source.Release()
			if err != nil {
				nlog.Errorf("hermesd: recv_buffer %q: push failed: %v", in.Pathname, err)
				return
			}
			nlog.Infof("hermesd: recv_buffer %q: pushed %d bytes", in.Pathname, len(data))
			if rerr := hermes.Respond(req, examples.RecvBufferOut{Retval: 42}); rerr != nil {
				nlog.Errorf("hermesd: recv_buffer %q: respond: %v", in.Pathname, rerr)
			}
		})
		if err != nil {
			source.Release()
			nlog.Errorf("hermesd: recv_buffer %q: async_push: %v", in.Pathname, err)
		}
	}
}
