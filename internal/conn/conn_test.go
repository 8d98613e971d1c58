package conn

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func pipeConn(t *testing.T) *Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { server.Close() })
	return New(client)
}

func TestConnLifecycleHappyPath(t *testing.T) {
	c := pipeConn(t)
	require.Equal(t, Idle, c.State())

	require.NoError(t, c.MarkPrimed([]byte("tail")))
	require.Equal(t, Primed, c.State())

	require.NoError(t, c.MarkReleased())
	require.Equal(t, Released, c.State())

	require.NoError(t, c.MarkCollected())
	require.Equal(t, Collected, c.State())

	require.NoError(t, c.Close())
	require.Equal(t, Closed, c.State())
}

func TestConnInvalidTransitions(t *testing.T) {
	c := pipeConn(t)

	require.ErrorIs(t, c.MarkReleased(), ErrInvalidTransition)
	require.ErrorIs(t, c.MarkCollected(), ErrInvalidTransition)

	require.NoError(t, c.MarkPrimed(nil))
	require.ErrorIs(t, c.MarkPrimed(nil), ErrInvalidTransition)
	require.ErrorIs(t, c.MarkCollected(), ErrInvalidTransition)
}

func TestConnFailClosesFromAnyState(t *testing.T) {
	c := pipeConn(t)
	require.NoError(t, c.MarkPrimed(nil))
	require.NoError(t, c.Fail())
	require.Equal(t, Closed, c.State())

	n, err := c.Raw().Write([]byte("x"))
	require.Error(t, err)
	require.Zero(t, n)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	c := pipeConn(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
