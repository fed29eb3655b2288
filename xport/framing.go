package xport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bsc-ssrg/hermes/cmn/nlog"
)

// frame layout on the wire: 1-byte type, 8-byte request id, 2-byte rpc id,
// 4-byte payload length, followed by that many payload bytes. rpcID is
// unused (zero) on every frame type except frameRequest.
type frameType byte

const (
	frameRequest frameType = iota
	frameResponse
	frameCancel
	frameBulkPull     // ask peer to send back the bytes behind BulkID
	frameBulkPullData // carries those bytes, destined for LocalID
	frameBulkPush     // carries Data, destined for BulkID
	frameBulkAck       // acknowledges a push completed (a pull completes on frameBulkPullData)
)

const frameHeaderLen = 1 + 8 + 2 + 4

type bulkRequest struct {
	BulkID  uint64
	LocalID uint64
}

type bulkPush struct {
	BulkID uint64
	Data   []byte
}

type bulkAck struct {
	LocalID uint64
	Err     string
}

func writeFrame(wc *wireConn, ft frameType, reqID uint64, rpcID uint16, payload []byte) error {
	wc.wmu.Lock()
	defer wc.wmu.Unlock()

	var hdr [frameHeaderLen]byte
	hdr[0] = byte(ft)
	binary.BigEndian.PutUint64(hdr[1:9], reqID)
	binary.BigEndian.PutUint16(hdr[9:11], rpcID)
	binary.BigEndian.PutUint32(hdr[11:15], uint32(len(payload)))

	if _, err := wc.w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := wc.w.Write(payload); err != nil {
			return err
		}
	}
	return wc.w.Flush()
}

func readFrame(r io.Reader) (frameType, uint64, uint16, []byte, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, 0, nil, err
	}
	ft := frameType(hdr[0])
	reqID := binary.BigEndian.Uint64(hdr[1:9])
	rpcID := binary.BigEndian.Uint16(hdr[9:11])
	n := binary.BigEndian.Uint32(hdr[11:15])

	var payload []byte
	if n > 0 {
		payload = make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, 0, 0, nil, err
		}
	}
	return ft, reqID, rpcID, payload, nil
}

// readLoop decodes frames off one connection and turns each into a closure
// queued on the driver's ready channel, so that dispatcher stubs and
// forward/bulk completion callbacks always run on the engine's progress
// thread, never on this goroutine.
func (d *tcpDriver) readLoop(wc *wireConn) {
	for {
		ft, reqID, rpcID, payload, err := readFrame(wc.conn)
		if err != nil {
			if err != io.EOF {
				nlog.Mercuryf("xport(%s): read: %v", d.id, err)
			}
			return
		}

		switch ft {
		case frameRequest:
			d.mu.Lock()
			stub, ok := d.handlers[rpcID]
			d.mu.Unlock()
			if !ok {
				nlog.Warningf("xport(%s): no handler registered for rpc %d", d.id, rpcID)
				continue
			}
			h := &tcpHandle{reqID: reqID, conn: wc, inbound: true}
			fn := func() { stub(h, rpcID, payload) }
			d.ready <- fn

		case frameResponse:
			d.completeForward(reqID, StatusSuccess, payload, nil)

		case frameCancel:
			d.completeForward(reqID, StatusCancelled, nil, nil)

		case frameBulkPull:
			var req bulkRequest
			if err := unmarshal(payload, &req); err != nil {
				continue
			}
			d.mu.Lock()
			lb, ok := d.bulks[req.BulkID]
			d.mu.Unlock()
			if !ok {
				continue
			}
			data := concatBufs(lb.bufs)
			reply, err := marshal(bulkPush{BulkID: req.LocalID, Data: data})
			if err != nil {
				continue
			}
			if err := writeFrame(wc, frameBulkPullData, reqID, 0, reply); err != nil {
				nlog.Mercuryf("xport(%s): bulk pull reply: %v", d.id, err)
			}

		case frameBulkPullData:
			// the requester side of a pull: the bytes are destined for our
			// own local bulk (keyed by BulkID, which the requester set to
			// its LocalID when it sent frameBulkPull): complete right here,
			// no ack round trip needed.
			var msg bulkPush
			var callErr error
			if err := unmarshal(payload, &msg); err != nil {
				callErr = err
			} else {
				d.mu.Lock()
				lb, ok := d.bulks[msg.BulkID]
				d.mu.Unlock()
				if !ok {
					callErr = fmt.Errorf("xport(%s): unknown local bulk %d", d.id, msg.BulkID)
				} else {
					scatter(msg.Data, lb.bufs)
				}
			}
			d.completeForward(reqID, StatusSuccess, nil, callErr)

		case frameBulkPush:
			// the remote side of a push: apply the pushed bytes into our
			// own exposed bulk, then ack so the pusher's callback can fire.
			var msg bulkPush
			errStr := ""
			if err := unmarshal(payload, &msg); err != nil {
				errStr = err.Error()
			} else {
				d.mu.Lock()
				lb, ok := d.bulks[msg.BulkID]
				d.mu.Unlock()
				if !ok {
					errStr = fmt.Sprintf("xport(%s): unknown local bulk %d", d.id, msg.BulkID)
				} else {
					scatter(msg.Data, lb.bufs)
				}
			}
			ack, err := marshal(bulkAck{Err: errStr})
			if err == nil {
				if err := writeFrame(wc, frameBulkAck, reqID, 0, ack); err != nil {
					nlog.Mercuryf("xport(%s): bulk push ack: %v", d.id, err)
				}
			}

		case frameBulkAck:
			var ack bulkAck
			var callErr error
			if err := unmarshal(payload, &ack); err != nil {
				callErr = err
			} else if ack.Err != "" {
				callErr = fmt.Errorf("%s", ack.Err)
			}
			d.completeForward(reqID, StatusSuccess, nil, callErr)

		default:
			nlog.Warningf("xport(%s): unknown frame type %d", d.id, ft)
		}
	}
}

func (d *tcpDriver) completeForward(reqID uint64, status Status, payload []byte, err error) {
	d.mu.Lock()
	pc, ok := d.pending[reqID]
	if ok {
		if pc.done {
			ok = false
		} else {
			pc.done = true
		}
		delete(d.pending, reqID)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	d.ready <- func() { pc.cb(status, payload, err) }
}
