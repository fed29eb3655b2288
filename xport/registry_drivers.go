package xport

// NewDriver constructs the concrete Driver for a TransportID. Every member
// of the closed enum is currently served by the same tcpDriver
// implementation (see tcpdriver.go); this indirection exists so a future
// transport with genuinely different wire behavior (e.g. a real OFI verbs
// binding) can be slotted in without touching call sites.
func NewDriver(id TransportID) Driver {
	return NewTCPDriver(id)
}

// NewDriverByPrefix resolves a "scheme://"-style prefix and constructs its
// driver in one step, for callers that only have a textual address.
func NewDriverByPrefix(prefix string) (Driver, bool) {
	id, ok := TransportByPrefix(prefix)
	if !ok {
		return nil, false
	}
	return NewDriver(id), true
}
