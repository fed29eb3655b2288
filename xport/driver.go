package xport

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProgressTimeout = errors.New("xport: progress timeout") // benign, expected on every idle poll
	ErrDriverClosed    = errors.New("xport: driver closed")
	ErrBulkZeroSize    = errors.New("xport: zero-size bulk transfer")
)

// Handle is the native, opaque handle for one in-flight RPC: on the
// origin side it is created by CreateHandle and consumed by Forward; on
// the target side it arrives already populated via a DispatcherStub call
// and is consumed by Respond/BulkTransfer.
type Handle interface {
	// ID is used only for logging/debugging.
	ID() uint64
}

// BulkHandle is the native, opaque, serializable descriptor for one or more
// registered memory segments.
type BulkHandle struct {
	ID    uint64
	Size  int64
	Segs  []int64 // per-segment byte lengths
	Mode  AccessMode
	local *localBulk // non-nil only for bulk handles created locally via BulkCreate
}

type localBulk struct {
	bufs [][]byte
	mode AccessMode
}

// DispatcherStub is invoked by the driver, on the engine's progress thread,
// when a new request frame for a registered RPC id arrives. payload is the
// still-serialized input; the engine's registry decodes it.
type DispatcherStub func(h Handle, rpcID uint16, payload []byte)

// ForwardCallback is invoked, on the progress thread, exactly once per
// Forward call: either with a decoded response payload (status success),
// or with status cancelled/error and no payload.
type ForwardCallback func(status Status, payload []byte, err error)

// BulkCallback is invoked, on the progress thread, exactly once per
// BulkTransfer call.
type BulkCallback func(err error)

// Driver is the native transport library's primitive surface:
// create-handle, forward, respond, bulk-create, bulk-transfer, progress,
// trigger, cancel, address lookup/free, codecs. Concrete implementations
// stand in for BMI/CCI/OFI/verbs/PSM2/GNI.
type Driver interface {
	TransportID() TransportID

	// Lookup resolves a normalized (prefix-stripped) textual address to a
	// native handle. Blocking: callers that need the engine's
	// drive-progress-until-ready behavior call this off the
	// progress thread and pump Trigger/Progress themselves; Lookup itself
	// only performs the native-layer half (e.g. DNS + TCP dial probe).
	Lookup(ctx context.Context, body string) (native any, err error)
	FreeAddress(native any)
	SelfAddress() (native any, err error)

	// Listen starts accepting inbound connections/requests on bindAddr
	// (already normalized, without scheme). No-op for client-only engines.
	Listen(bindAddr string) error

	RegisterDispatcher(rpcID uint16, stub DispatcherStub)
	UnregisterDispatcher(rpcID uint16)

	CreateHandle(target Address) (Handle, error)
	Forward(h Handle, rpcID uint16, payload []byte, cb ForwardCallback) error
	Respond(h Handle, payload []byte) error
	Cancel(h Handle) error
	DestroyHandle(h Handle)

	BulkCreate(bufs [][]byte, mode AccessMode) (BulkHandle, error)
	BulkToWire(b BulkHandle) ([]byte, error)
	BulkFromWire(wire []byte) (BulkHandle, error)
	BulkRelease(b BulkHandle)
	BulkTransfer(reqHandle Handle, dir Direction, origin, local BulkHandle, cb BulkCallback) error

	// Trigger invokes callbacks for completions that are already ready,
	// without blocking, and returns how many fired.
	Trigger() int
	// Progress blocks up to timeout waiting for at least one completion,
	// executing it if one arrives. Returns ErrProgressTimeout (benign) or
	// another error (fatal).
	Progress(timeout time.Duration) error

	Close(forkedChild bool) error
}
