package hermes

import "encoding/binary"

// Margo-compatibility mode: reserves a leading
// 8-byte per-thread "breadcrumb" sequence value at the head of each
// forwarded request's input buffer, for external tracing correlation.
//
// A full Margo-compatible transport also multiplexes a provider id into
// the low bits of the native request id. This module has no
// multi-provider concept to route to (every engine here serves exactly
// one registry), so that half is not implemented; only the documented
// input-buffer offset reservation is. The wire rpc id is always the
// descriptor's own id, margo mode or not.
const breadcrumbLen = 8

// withBreadcrumb prepends a fresh per-call sequence value to payload when
// margo compatibility is enabled; otherwise returns payload unchanged.
func (e *Engine) withBreadcrumb(payload []byte) []byte {
	if !e.opts.MargoCompat {
		return payload
	}
	seq := e.requestSeq.Add(1)
	buf := make([]byte, breadcrumbLen+len(payload))
	binary.BigEndian.PutUint64(buf[:breadcrumbLen], seq)
	copy(buf[breadcrumbLen:], payload)
	return buf
}

// stripBreadcrumb removes the leading breadcrumb on the target side before
// decoding, when margo compatibility is enabled.
func (e *Engine) stripBreadcrumb(payload []byte) []byte {
	if !e.opts.MargoCompat || len(payload) < breadcrumbLen {
		return payload
	}
	return payload[breadcrumbLen:]
}
