package negotiation

import (
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
)

func pipeChannels(t *testing.T) (*Channel, *Channel) {
	t.Helper()
	c1, c2 := net.Pipe()
	a, b := NewChannel(c1), NewChannel(c2)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestChannel_SendRecv(t *testing.T) {
	a, b := pipeChannels(t)

	go func() {
		_ = a.Send(MessageSyn, PayloadSyn)
	}()

	msgType, payload, err := b.Recv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, MessageSyn, msgType)
	assert.Equal(t, PayloadSyn, payload)
}

func TestChannel_RecvTimeout(t *testing.T) {
	_, b := pipeChannels(t)

	_, _, err := b.Recv(20 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "deadline expiry must be reported as a timeout")
	assert.False(t, errors.Is(err, core.ErrChannelClosed), "a timeout is recoverable, not a transport failure")
}

func TestChannel_RecvAfterPeerClose(t *testing.T) {
	a, b := pipeChannels(t)
	require.NoError(t, a.Close())

	_, _, err := b.Recv(time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrChannelClosed))
}

func TestChannel_SendAfterClose(t *testing.T) {
	a, _ := pipeChannels(t)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "close must be idempotent")

	err := a.Send(MessageShutdown, PayloadShutdown)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrChannelClosed))
}

func TestListenDial_UnixSocket(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "negotiation.sock")

	listener, err := Listen("unix", endpoint)
	require.NoError(t, err)
	defer listener.Close()

	type acceptResult struct {
		ch  *Channel
		err error
	}
	accepted := make(chan acceptResult, 1)
	go func() {
		ch, err := listener.Accept()
		accepted <- acceptResult{ch, err}
	}()

	dialer, err := Dial("unix", endpoint)
	require.NoError(t, err)
	defer dialer.Close()

	res := <-accepted
	require.NoError(t, res.err)
	defer res.ch.Close()

	require.NoError(t, dialer.Send(MessageTelemetry, "Insert:100.0000"))
	msgType, payload, err := res.ch.Recv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, MessageTelemetry, msgType)
	assert.Equal(t, "Insert:100.0000", payload)
}
