package hermes

import "fmt"

// Respond serializes output via the request type's output codec and posts
// a best-effort response through the native layer. No
// completion callback is wired; failures here propagate to the caller of
// Respond, not back to the origin.
func Respond(req *Request, output any) error {
	if !req.requiresResponse {
		return &ErrNoResponseExpected{RequestType: req.descriptor.Name}
	}
	payload, err := req.descriptor.EncodeOutput(output)
	if err != nil {
		return fmt.Errorf("hermes: encode output for %q: %w", req.descriptor.Name, err)
	}
	if err := req.engine.driver.Respond(req.native, payload); err != nil {
		return &ErrNativeFailure{Op: "respond", Err: err}
	}
	return nil
}
