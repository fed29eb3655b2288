package hermes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bsc-ssrg/hermes/bulk"
	"github.com/bsc-ssrg/hermes/cmn/nlog"
	"github.com/bsc-ssrg/hermes/hk"
	"github.com/bsc-ssrg/hermes/memsys"
	"github.com/bsc-ssrg/hermes/registry"
	"github.com/bsc-ssrg/hermes/xport"
)

// Engine binds to a transport and (optionally) a listening address, owns
// the native driver, and runs a single progress thread.
type Engine struct {
	transport xport.TransportID
	driver    xport.Driver
	opts      Options
	mm        *memsys.MMSA

	cache *addrCache

	stopCh  chan struct{}
	doneCh  chan struct{}
	running atomic.Bool

	// requestSeq is the per-call breadcrumb sequence for margo
	// compatibility; see margo.go.
	requestSeq atomic.Uint64

	stats *engineStats

	hkName string

	mu      sync.Mutex
	started bool
}

// New constructs an Engine bound to transport, with an optional bind
// address (empty means client-only) and a listen flag.
func New(transport xport.TransportID, opts Options, bindAddr string, listen bool) (*Engine, error) {
	driver := xport.NewDriver(transport)
	e := &Engine{
		transport: transport,
		driver:    driver,
		opts:      opts,
		mm:        memsys.PageMM(),
		cache:     newAddrCache(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		stats:     newEngineStats(string(transport.Prefix())),
	}
	if listen {
		if bindAddr == "" {
			return nil, &ErrConfiguration{Msg: "listen requested without a bind address"}
		}
		if err := driver.Listen(bindAddr); err != nil {
			return nil, &ErrNativeFailure{Op: "listen", Err: err}
		}
	}
	e.installDispatchers(listen)

	if opts.StatsLogInterval > 0 {
		e.hkName = fmt.Sprintf("hermes-stats-%s-%p", transport.Prefix(), e)
		hk.DefaultHK.Reg(e.hkName, e.logStatsPeriodic, opts.StatsLogInterval)
	}
	return e, nil
}

// logStatsPeriodic is the hk.CleanupFunc driving Options.StatsLogInterval;
// it keeps rescheduling itself at the same interval until Close unregisters
// it.
func (e *Engine) logStatsPeriodic(time.Time) time.Duration {
	e.stats.logFinal()
	return e.opts.StatsLogInterval
}

// SelfAddress returns this engine's own bound address, valid only in
// listen mode.
func (e *Engine) SelfAddress() (Endpoint, error) {
	native, err := e.driver.SelfAddress()
	if err != nil {
		return Endpoint{}, &ErrNativeFailure{Op: "self_address", Err: err}
	}
	addr := xport.NewAddress(fmt.Sprintf("%s://%v", e.transport.Prefix(), native), native, e.driver)
	return Endpoint{addr: addr}, nil
}

// Lookup resolves a textual address to an Endpoint.
//
// The native lookup in this module's transport stand-in is a synchronous
// dial probe (xport.Driver.Lookup), not an asynchronous native callback
// that must cooperatively drive trigger/progress while waiting, so this
// implementation simply calls it and blocks the calling goroutine
// directly.
func (e *Engine) Lookup(ctx context.Context, textual string) (Endpoint, error) {
	prefix, body, hasPrefix := splitAddress(textual)
	if !hasPrefix {
		prefix = e.transport.Prefix()
		body = textual
		nlog.Warningf("hermes: address %q has no scheme, assuming engine default %q", textual, prefix)
	} else if !prefixCompatible(e.transport, prefix) {
		return Endpoint{}, &ErrTransportMismatch{Want: e.transport.Prefix(), Got: prefix}
	}

	key := fmt.Sprintf("%s://%s", e.transport.Prefix(), body)
	if cached, ok := e.cache.get(key); ok {
		return Endpoint{addr: cached}, nil
	}

	normalized := xport.NormalizeAddress(e.transport, body)
	native, err := e.driver.Lookup(ctx, normalized)
	if err != nil {
		return Endpoint{}, &ErrNativeFailure{Op: "lookup", Err: err}
	}

	addr := xport.NewAddress(key, native, e.driver)
	e.cache.put(key, addr.Clone())
	return Endpoint{addr: addr}, nil
}

// LookupAll performs a serial, deduplicated lookup over a set of textual
// addresses. Concurrent lookup would only help when addresses resolve
// over a slow directory service; this engine's addresses resolve locally,
// so serial correctness is all that's needed.
func (e *Engine) LookupAll(ctx context.Context, addrs []string) (EndpointSet, error) {
	seen := make(map[string]bool, len(addrs))
	var set EndpointSet
	for _, a := range addrs {
		if seen[a] {
			continue
		}
		seen[a] = true
		ep, err := e.Lookup(ctx, a)
		if err != nil {
			return EndpointSet{}, err
		}
		set.endpoints = append(set.endpoints, ep)
	}
	return set, nil
}

func splitAddress(textual string) (prefix, body string, ok bool) {
	i := strings.Index(textual, "://")
	if i < 0 {
		return "", textual, false
	}
	return textual[:i], textual[i+3:], true
}

func prefixCompatible(transport xport.TransportID, prefix string) bool {
	if prefix == transport.Prefix() {
		return true
	}
	id, ok := xport.TransportByPrefix(prefix)
	return ok && id == transport
}

// Expose registers a sequence of buffers as one bulk unit.
func (e *Engine) Expose(buffers [][]byte, mode xport.AccessMode) (*bulk.ExposedMemory, error) {
	return bulk.Expose(e.driver, buffers, mode)
}

// AllocExposed allocates fresh memsys-backed buffers and exposes them, for
// handlers that need local storage before a pull completes (scenario S3).
func (e *Engine) AllocExposed(sizes []int64, mode xport.AccessMode) (*bulk.ExposedMemory, error) {
	return bulk.Alloc(e.mm, e.driver, sizes, mode)
}

// RegisterHandler stores fn as the registry's handler for rpcID. Fails if
// rpcID was never registered.
func (e *Engine) RegisterHandler(rpcID uint16, fn registry.Handler) error {
	d, ok := registry.Lookup(rpcID)
	if !ok {
		return &ErrConfiguration{Msg: fmt.Sprintf("register_handler: request type %d was never registered", rpcID)}
	}
	d.SetHandler(fn)
	return nil
}

// hkStarted guards the one process-wide hk.DefaultHK.Run goroutine: every
// Engine shares the same Housekeeper singleton, so only the first one to
// call Run needs to start it.
var hkStarted sync.Once

// Run spawns the progress thread, and, the first time any Engine in this
// process does so, the housekeeper goroutine backing Options.StatsLogInterval
// and any other hk.DefaultHK registrations. Calling Run twice on the same
// Engine is a no-op.
func (e *Engine) Run() {
	hkStarted.Do(func() { go hk.DefaultHK.Run() })
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	go e.progressLoop()
}

// Close sets the shutdown flag, joins the progress thread, clears the
// address cache, and, unless this is a forked child, finalizes the
// native driver.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	if e.running.Load() {
		close(e.stopCh)
		<-e.doneCh
	}
	if e.hkName != "" {
		hk.DefaultHK.Unreg(e.hkName)
	}
	e.cache.clear()
	if e.opts.StatsOnTeardown {
		e.stats.logFinal()
	}
	return e.driver.Close(e.opts.ForkedChild)
}

func (e *Engine) progressTimeout() time.Duration {
	if e.opts.ForceNonBlockingProgress {
		return time.Millisecond
	}
	if e.opts.ProgressInterval > 0 {
		return e.opts.ProgressInterval
	}
	return 100 * time.Millisecond
}
