package hermes

import (
	"github.com/invopop/jsonschema"

	"github.com/bsc-ssrg/hermes/cmn/nlog"
	"github.com/bsc-ssrg/hermes/registry"
	"github.com/bsc-ssrg/hermes/xport"
)

// RequestType[In, Out] is the typed handle applications use instead of
// juggling raw rpc ids: a `register_handler<R>`/`post<R>`/`broadcast<R>`/
// `respond<R>` style surface expressed with type parameters instead of
// C++ templates. In and Out must be plain structs go-xdr can marshal by
// reflection.
type RequestType[In, Out any] struct {
	ID               uint16
	Name             string
	RequiresResponse bool

	descriptor *registry.Descriptor
}

// Declare registers a request type's static metadata (id, name,
// requires-response flag, and XDR-based codec callbacks for In/Out) with
// the process-wide registry. Safe to call more than once
// with identical parameters: registration is idempotent.
func Declare[In, Out any](id uint16, name string, requiresResponse bool) (*RequestType[In, Out], error) {
	var in In
	var out Out
	d := &registry.Descriptor{
		ID:               id,
		Name:             name,
		RequiresResponse: requiresResponse,
		InputSchema:      jsonschema.Reflect(&in),
		OutputSchema:     jsonschema.Reflect(&out),
		EncodeInput:      func(v any) ([]byte, error) { return xport.Marshal(v) },
		DecodeInput: func(data []byte) (any, error) {
			var in In
			if err := xport.Unmarshal(data, &in); err != nil {
				return nil, err
			}
			return in, nil
		},
		EncodeOutput: func(v any) ([]byte, error) { return xport.Marshal(v) },
		DecodeOutput: func(data []byte) (any, error) {
			var o Out
			if err := xport.Unmarshal(data, &o); err != nil {
				return nil, err
			}
			return o, nil
		},
	}
	reg, err := registry.Register(d)
	if err != nil {
		return nil, err
	}
	return &RequestType[In, Out]{ID: id, Name: name, RequiresResponse: requiresResponse, descriptor: reg}, nil
}

// RegisterHandlerT stores fn as rt's handler. Fails if rt was never
// registered, mirroring Engine.RegisterHandler but with
// typed input access and typed output/error return.
func RegisterHandlerT[In, Out any](e *Engine, rt *RequestType[In, Out], fn func(req *Request, input In) (Out, error)) error {
	return e.RegisterHandler(rt.ID, func(req any) {
		r := req.(*Request)
		in, _ := r.Input().(In)
		out, err := fn(r, in)
		if err != nil {
			return
		}
		if r.RequiresResponse() {
			if rerr := Respond(r, out); rerr != nil {
				// handler completed successfully but the native response
				// failed to post; respond is best-effort and the caller
				// here is this wrapper itself, so there is no further
				// caller to surface it to, hence logging through the
				// error sink instead.
				logRespondFailure(rt.Name, rerr)
			}
		}
	})
}

// PostT posts a typed request to a single endpoint.
func PostT[In, Out any](e *Engine, rt *RequestType[In, Out], ep Endpoint, input In) (*TypedHandle[Out], error) {
	h, err := e.Post(rt.ID, ep, input)
	return &TypedHandle[Out]{h: h}, err
}

// BroadcastT posts a typed request to every endpoint in the set.
func BroadcastT[In, Out any](e *Engine, rt *RequestType[In, Out], eps EndpointSet, input In) (*TypedHandle[Out], error) {
	h, err := e.Broadcast(rt.ID, eps, input)
	return &TypedHandle[Out]{h: h}, err
}

// TypedHandle wraps Handle with a typed Get().
type TypedHandle[Out any] struct {
	h *Handle
}

func (t *TypedHandle[Out]) Get() ([]Out, error) {
	raw, err := t.h.Get()
	out := make([]Out, 0, len(raw))
	for _, r := range raw {
		if v, ok := r.(Out); ok {
			out = append(out, v)
		}
	}
	return out, err
}

func (t *TypedHandle[Out]) Close() { t.h.Close() }

func logRespondFailure(name string, err error) {
	nlog.Errorf("hermes: respond failed for %q: %v", name, err)
}
