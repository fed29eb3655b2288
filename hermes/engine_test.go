package hermes_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/xport"
)

var errNoRespond = errors.New("handler intentionally never responds")

type echoIn struct {
	Msg string
}

type echoOut struct {
	Msg string
}

type pingIn struct{}
type pingOut struct{}

func newPair(t *testing.T, retries int) (server, client *hermes.Engine, ep hermes.Endpoint) {
	t.Helper()
	opts := hermes.DefaultOptions()
	opts.RetryPolicy = hermes.RetryPolicy{PerAttemptTimeout: 300 * time.Millisecond, MaxRetries: retries}

	srv, err := hermes.New(xport.BmiTCP, opts, "127.0.0.1:0", true)
	require.NoError(t, err)
	srv.Run()
	t.Cleanup(func() { _ = srv.Close() })

	cli, err := hermes.New(xport.BmiTCP, opts, "", false)
	require.NoError(t, err)
	cli.Run()
	t.Cleanup(func() { _ = cli.Close() })

	self, err := srv.SelfAddress()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	endpoint, err := cli.Lookup(ctx, self.String())
	require.NoError(t, err)

	return srv, cli, endpoint
}

// TestRoundTrip exercises scenario S1: a request-response pair travels from
// a client engine to a listening server engine and back.
func TestRoundTrip(t *testing.T) {
	rt, err := hermes.Declare[echoIn, echoOut](1, "echo", true)
	require.NoError(t, err)

	srv, cli, ep := newPair(t, 0)
	_ = srv

	err = hermes.RegisterHandlerT(srv, rt, func(req *hermes.Request, in echoIn) (echoOut, error) {
		return echoOut{Msg: "echo:" + in.Msg}, nil
	})
	require.NoError(t, err)

	h, err := hermes.PostT(cli, rt, ep, echoIn{Msg: "hi"})
	require.NoError(t, err)
	out, err := h.Get()
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "echo:hi", out[0].Msg)
}

// TestOneWayNeverWaits exercises scenario S2 and testable property 7: a
// request type declared one-way reaches its handler, which sees
// RequiresResponse() == false, and Get() fails immediately with
// ErrNoResponseExpected rather than blocking.
func TestOneWayNeverWaits(t *testing.T) {
	rt, err := hermes.Declare[pingIn, pingOut](2, "ping", false)
	require.NoError(t, err)

	srv, cli, ep := newPair(t, 0)

	received := make(chan struct{}, 1)
	err = hermes.RegisterHandlerT(srv, rt, func(req *hermes.Request, _ pingIn) (pingOut, error) {
		require.False(t, req.RequiresResponse())
		received <- struct{}{}
		return pingOut{}, nil
	})
	require.NoError(t, err)

	h, err := hermes.PostT(cli, rt, ep, pingIn{})
	require.NoError(t, err)

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	_, err = h.Get()
	require.Error(t, err)
	var notExpected *hermes.ErrNoResponseExpected
	require.ErrorAs(t, err, &notExpected)
}

// TestRegistrationIdempotence mirrors testable property 1: re-declaring the
// same request type with identical metadata succeeds; declaring it again
// with a different requires-response flag fails.
func TestRegistrationIdempotence(t *testing.T) {
	_, err := hermes.Declare[echoIn, echoOut](3, "idempotent", true)
	require.NoError(t, err)
	_, err = hermes.Declare[echoIn, echoOut](3, "idempotent", true)
	require.NoError(t, err)

	_, err = hermes.Declare[echoIn, echoOut](3, "idempotent", false)
	require.Error(t, err)
}

// TestLookupPrefixMismatch exercises the lookup prefix-enforcement rule:
// looking up an address whose scheme belongs to a different transport than
// the engine was constructed with fails instead of silently reinterpreting
// it.
func TestLookupPrefixMismatch(t *testing.T) {
	opts := hermes.DefaultOptions()
	cli, err := hermes.New(xport.BmiTCP, opts, "", false)
	require.NoError(t, err)
	defer cli.Close()

	_, err = cli.Lookup(context.Background(), "ofi+tcp://127.0.0.1:9999")
	require.Error(t, err)
	var mismatch *hermes.ErrTransportMismatch
	require.ErrorAs(t, err, &mismatch)
}

// TestTimeoutExhaustion exercises testable property 9: a request to an
// endpoint that never responds exhausts its retry budget and Get() returns
// ErrTimedOut once retries run out.
func TestTimeoutExhaustion(t *testing.T) {
	rt, err := hermes.Declare[pingIn, pingOut](4, "never-responds", true)
	require.NoError(t, err)

	srv, cli, ep := newPair(t, 1)
	err = hermes.RegisterHandlerT(srv, rt, func(req *hermes.Request, _ pingIn) (pingOut, error) {
		// never call Respond; the origin side must time out and give up
		// after exhausting its retry budget.
		return pingOut{}, errNoRespond
	})
	require.NoError(t, err)

	h, err := hermes.PostT(cli, rt, ep, pingIn{})
	require.NoError(t, err)

	_, err = h.Get()
	require.Error(t, err)
	var timedOut *hermes.ErrTimedOut
	require.ErrorAs(t, err, &timedOut)
}
