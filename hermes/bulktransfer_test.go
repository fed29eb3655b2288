package hermes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/xport"
)

type bulkIn struct {
	Buffers xport.BulkRef
}

type bulkOut struct {
	Retval int32
}

// TestAsyncPullRoundTrip exercises scenario S3: the client exposes a
// read-only source buffer, the server allocates a matching local buffer,
// async_pulls into it, and responds from the pull's completion callback.
func TestAsyncPullRoundTrip(t *testing.T) {
	rt, err := hermes.Declare[bulkIn, bulkOut](10, "test-send-buffer", true)
	require.NoError(t, err)

	srv, cli, ep := newPair(t, 0)

	err = srv.RegisterHandler(rt.ID, func(reqAny any) {
		req := reqAny.(*hermes.Request)
		in, ok := req.Input().(bulkIn)
		require.True(t, ok)

		origin := xport.HandleFromRef(in.Buffers)
		local, err := srv.AllocExposed(origin.Segs, xport.AccessWriteOnly)
		require.NoError(t, err)

		pullErr := srv.AsyncPull(origin, local, req, func(req *hermes.Request, err error) {
			defer local.Release()
			require.NoError(t, err)
			require.Equal(t, "hello-bulk", string(local.Bytes()[0]))
			require.NoError(t, hermes.Respond(req, bulkOut{Retval: 42}))
		})
		require.NoError(t, pullErr)
	})
	require.NoError(t, err)

	source, err := cli.Expose([][]byte{[]byte("hello-bulk")}, xport.AccessReadOnly)
	require.NoError(t, err)
	defer source.Release()

	h, err := hermes.PostT(cli, rt, ep, bulkIn{Buffers: source.ToRef()})
	require.NoError(t, err)
	out, err := h.Get()
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int32(42), out[0].Retval)
}

// TestAsyncPushRoundTrip exercises scenario S4: the client exposes a
// write-only destination buffer sized up front, the server exposes its
// own local source and async_pushes into the client's buffer, and the
// client observes its destination filled once Get() returns.
func TestAsyncPushRoundTrip(t *testing.T) {
	rt, err := hermes.Declare[bulkIn, bulkOut](11, "test-recv-buffer", true)
	require.NoError(t, err)

	srv, cli, ep := newPair(t, 0)

	err = srv.RegisterHandler(rt.ID, func(reqAny any) {
		req := reqAny.(*hermes.Request)
		in, ok := req.Input().(bulkIn)
		require.True(t, ok)

		source, err := srv.Expose([][]byte{[]byte("pushed-bytes")}, xport.AccessReadOnly)
		require.NoError(t, err)

		origin := xport.HandleFromRef(in.Buffers)
		pushErr := srv.AsyncPush(source, origin, req, func(req *hermes.Request, err error) {
			defer source.Release()
			require.NoError(t, err)
			require.NoError(t, hermes.Respond(req, bulkOut{Retval: 42}))
		})
		require.NoError(t, pushErr)
	})
	require.NoError(t, err)

	dest, err := cli.AllocExposed([]int64{int64(len("pushed-bytes"))}, xport.AccessWriteOnly)
	require.NoError(t, err)
	defer dest.Release()

	h, err := hermes.PostT(cli, rt, ep, bulkIn{Buffers: dest.ToRef()})
	require.NoError(t, err)
	out, err := h.Get()
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int32(42), out[0].Retval)
	require.Equal(t, "pushed-bytes", string(dest.Bytes()[0]))
}
