package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udpcopier/internal/errors"
	"udpcopier/internal/protocol"
)

func TestEndpointLoopback(t *testing.T) {
	server, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	client, err := Dial(server.LocalAddr().String())
	require.NoError(t, err)
	defer client.Close()

	sent := protocol.NewDataPacket(3, 10, protocol.FileID{1, 2}, []byte("payload"))
	require.NoError(t, client.Send(sent))

	got, from, err := server.ReceiveFrom(time.Second)
	require.NoError(t, err)
	assert.Equal(t, sent, got)

	ack := protocol.NewAckPacket(3, 1, sent.FileID)
	require.NoError(t, server.SendTo(ack, from))

	reply, err := client.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, ack, reply)
}

func TestEndpointReceiveTimeout(t *testing.T) {
	ep, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ep.Close()

	start := time.Now()
	_, err = ep.Receive(20 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestEndpointSendWithoutRemote(t *testing.T) {
	ep, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ep.Close()

	assert.Error(t, ep.Send(protocol.Packet{}))
}

func TestEndpointReceiveAfterClose(t *testing.T) {
	ep, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ep.Close())

	_, err = ep.Receive(10 * time.Millisecond)
	require.Error(t, err)
	assert.False(t, errors.IsTimeout(err))
}

func TestDialBadAddress(t *testing.T) {
	_, err := Dial("not an address")
	assert.Error(t, err)
}

func TestRoundTripStats(t *testing.T) {
	var stats RoundTripStats
	assert.Equal(t, "unknown", stats.Quality(0))

	stats.Observe(8 * time.Millisecond)
	assert.Equal(t, 8*time.Millisecond, stats.Smoothed)
	assert.Equal(t, "excellent", stats.Quality(0))

	stats.Observe(16 * time.Millisecond)
	assert.Equal(t, 9*time.Millisecond, stats.Smoothed)
	assert.Equal(t, 8*time.Millisecond, stats.Min)
	assert.Equal(t, 16*time.Millisecond, stats.Max)
	assert.Equal(t, 2, stats.Samples)
	assert.Equal(t, "poor", stats.Quality(0.5))
}

func TestResolveLocalIP(t *testing.T) {
	ip, err := ResolveLocalIP()
	if err != nil {
		t.Skipf("no usable network configuration: %v", err)
	}
	assert.NotNil(t, ip)
}
