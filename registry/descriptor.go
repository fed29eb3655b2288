package registry

import "sync/atomic"

// EncodeFunc serializes a typed value (produced by application code) into
// wire bytes. DecodeFunc is its inverse. Both are part of the per-type
// codec callback pair every descriptor carries.
type EncodeFunc func(v any) ([]byte, error)
type DecodeFunc func(data []byte) (any, error)

// Handler is the process-wide registered callable for one request type:
// it stores the callable in the descriptor for that request type. It
// receives whatever target-side request representation the engine layer
// defines; registry treats it opaquely since this package has no
// dependency on the engine.
type Handler func(req any)

// Descriptor is a request type's static metadata: numeric id, name,
// requires-response flag, and input/output codec callbacks. The user
// handler is stored separately in an atomic slot so register_handler can
// be called any time after the type is registered, including
// concurrently with dispatch.
type Descriptor struct {
	ID               uint16
	Name             string
	RequiresResponse bool

	EncodeInput  EncodeFunc
	DecodeInput  DecodeFunc
	EncodeOutput EncodeFunc
	DecodeOutput DecodeFunc

	// InputSchema/OutputSchema are optional JSON Schema documents (set by
	// hermes.Declare via invopop/jsonschema) describing In/Out for the
	// debug HTTP surface. Nil when the caller built a Descriptor directly
	// through the registry package rather than the generic API.
	InputSchema  any
	OutputSchema any

	handler atomic.Value
}

// SetHandler stores the user callback. Fails the caller's intent silently
// if called before the type exists in the registry: register_handler
// itself (in the hermes package) is responsible for the "fails if R was
// never registered" check.
func (d *Descriptor) SetHandler(h Handler) {
	d.handler.Store(h)
}

// UserHandler returns the previously stored handler, if any.
func (d *Descriptor) UserHandler() (Handler, bool) {
	v := d.handler.Load()
	if v == nil {
		return nil, false
	}
	h, ok := v.(Handler)
	return h, ok
}

// sameMetadata implements the idempotence rule for re-registration:
// identical id, name, requires-response flag, and the same
// presence/absence of each codec callback. Function values are never
// comparable in Go, so presence (non-nil) is the practical proxy for
// "byte-identical callbacks".
func (d *Descriptor) sameMetadata(other *Descriptor) bool {
	return d.Name == other.Name &&
		d.RequiresResponse == other.RequiresResponse &&
		(d.EncodeInput == nil) == (other.EncodeInput == nil) &&
		(d.DecodeInput == nil) == (other.DecodeInput == nil) &&
		(d.EncodeOutput == nil) == (other.EncodeOutput == nil) &&
		(d.DecodeOutput == nil) == (other.DecodeOutput == nil)
}
