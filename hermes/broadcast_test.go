package hermes_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/xport"
)

type broadcastIn struct {
	Msg string
}

type broadcastOut struct {
	Msg string
}

func newBroadcastTarget(t *testing.T, opts hermes.Options, rt *hermes.RequestType[broadcastIn, broadcastOut], hits *int32) (srv *hermes.Engine, addr string) {
	t.Helper()
	srv, err := hermes.New(xport.BmiTCP, opts, "127.0.0.1:0", true)
	require.NoError(t, err)
	srv.Run()

	err = hermes.RegisterHandlerT(srv, rt, func(_ *hermes.Request, in broadcastIn) (broadcastOut, error) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		return broadcastOut{Msg: "ack:" + in.Msg}, nil
	})
	require.NoError(t, err)

	self, err := srv.SelfAddress()
	require.NoError(t, err)
	return srv, self.String()
}

// TestBroadcastRoundTrip exercises scenario S5: one client posts the same
// request to several servers at once and Get() returns one result per
// endpoint, in the order the responses complete.
func TestBroadcastRoundTrip(t *testing.T) {
	rt, err := hermes.Declare[broadcastIn, broadcastOut](20, "test-broadcast", true)
	require.NoError(t, err)

	opts := hermes.DefaultOptions()
	opts.RetryPolicy = hermes.RetryPolicy{PerAttemptTimeout: 300 * time.Millisecond, MaxRetries: 0}

	const n = 3
	addrs := make([]string, n)
	var hits int32
	for i := 0; i < n; i++ {
		srv, addr := newBroadcastTarget(t, opts, rt, &hits)
		t.Cleanup(func() { _ = srv.Close() })
		addrs[i] = addr
	}

	cli, err := hermes.New(xport.BmiTCP, opts, "", false)
	require.NoError(t, err)
	cli.Run()
	t.Cleanup(func() { _ = cli.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	set, err := cli.LookupAll(ctx, addrs)
	require.NoError(t, err)
	require.Equal(t, n, set.Len())

	h, err := hermes.BroadcastT(cli, rt, set, broadcastIn{Msg: "hi"})
	require.NoError(t, err)

	out, err := h.Get()
	require.NoError(t, err)
	require.Len(t, out, n)
	for _, o := range out {
		require.Equal(t, "ack:hi", o.Msg)
	}
	require.EqualValues(t, n, atomic.LoadInt32(&hits))
}

// TestBroadcastPartialFailureCancelsRemaining exercises the
// cancelRemaining partial-submit-failure path: when a broadcast
// set's second endpoint can never be dialed, the first endpoint's
// already-submitted context is cancelled instead of being left to forward
// forever, and both Broadcast and the handle's Get() surface the failure.
func TestBroadcastPartialFailureCancelsRemaining(t *testing.T) {
	rt, err := hermes.Declare[broadcastIn, broadcastOut](21, "test-broadcast-partial", true)
	require.NoError(t, err)

	opts := hermes.DefaultOptions()
	opts.RetryPolicy = hermes.RetryPolicy{PerAttemptTimeout: 300 * time.Millisecond, MaxRetries: 0}

	good, goodAddr := newBroadcastTarget(t, opts, rt, nil)
	t.Cleanup(func() { _ = good.Close() })

	// deadSrv is looked up while still listening, so the client's address
	// cache resolves its textual address to a real native handle, then
	// closed before the broadcast runs, so CreateHandle's dial against it
	// fails with connection refused, after the good endpoint already
	// succeeded in submitting.
	deadSrv, deadAddr := newBroadcastTarget(t, opts, rt, nil)

	cli, err := hermes.New(xport.BmiTCP, opts, "", false)
	require.NoError(t, err)
	cli.Run()
	t.Cleanup(func() { _ = cli.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	set, err := cli.LookupAll(ctx, []string{goodAddr, deadAddr})
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	require.NoError(t, deadSrv.Close())

	h, err := hermes.BroadcastT(cli, rt, set, broadcastIn{Msg: "hi"})
	require.Error(t, err)
	require.NotNil(t, h)

	_, getErr := h.Get()
	require.Error(t, getErr)
}
