package xport

import (
	"bytes"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// marshal/unmarshal wrap rasky/go-xdr, the same codec family (ONC-RPC's
// XDR) Mercury itself uses to lay out C structs on the wire: a codec for
// the input record's field list, with field types like const-string,
// 32-bit integer, and opaque bulk handle. Using a real XDR implementation
// means the wire format here is not a made-up framing, but the actual
// byte layout a Mercury-compatible peer would use.
func marshal(v any) ([]byte, error) { return Marshal(v) }

func unmarshal(data []byte, v any) error { return Unmarshal(data, v) }

// Marshal and Unmarshal are exported so the registry/codec layer above this
// package (request and response records, not just bulk handles) can use the
// same XDR wire representation rather than inventing a second codec.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(data []byte, v any) error {
	_, err := xdr.Unmarshal(bytes.NewReader(data), v)
	return err
}

// BulkRef is the on-the-wire representation of a BulkHandle, exported so
// that a request record's codec can embed it directly as a struct field
// and have go-xdr marshal it inline with the rest of
// the record, rather than requiring a second, separately-framed blob.
//
// The access mode is deliberately NOT part of the wire form: the real
// Mercury bulk-access API has no way to recover the sender's originally
// declared mode, so a receiver always reconstructs the handle as
// read-write.
type BulkRef struct {
	ID   uint64
	Size int64
	Segs []int64
}

// ToRef converts a local BulkHandle to its wire form, for embedding in an
// outgoing request/response record.
func (b BulkHandle) ToRef() BulkRef {
	return BulkRef{ID: b.ID, Size: b.Size, Segs: append([]int64(nil), b.Segs...)}
}

// HandleFromRef reconstructs an origin-side BulkHandle from a wire
// reference decoded as part of an inbound record. The returned handle has
// no local buffers; it is only valid as the "origin" argument to
// Driver.BulkTransfer.
func HandleFromRef(ref BulkRef) BulkHandle {
	return BulkHandle{ID: ref.ID, Size: ref.Size, Segs: ref.Segs, Mode: AccessReadWrite}
}

func (d *tcpDriver) BulkToWire(b BulkHandle) ([]byte, error) {
	return marshal(b.ToRef())
}

func (d *tcpDriver) BulkFromWire(wire []byte) (BulkHandle, error) {
	var ref BulkRef
	if err := unmarshal(wire, &ref); err != nil {
		return BulkHandle{}, err
	}
	return HandleFromRef(ref), nil
}
