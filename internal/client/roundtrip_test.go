package client

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udpcopier/internal/errors"
	"udpcopier/internal/filesystem"
	"udpcopier/internal/protocol"
	"udpcopier/internal/server"
)

var senderAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 41000}

// serverLink hands every sent packet straight to a real server and queues its
// acknowledgments for Receive. It is the server's PacketConn as well.
type serverLink struct {
	mu   sync.Mutex
	srv  *server.Server
	acks []protocol.Packet
}

func newServerLink(t *testing.T, outputDir string) *serverLink {
	t.Helper()
	sink, err := filesystem.NewFileSink(outputDir, false)
	require.NoError(t, err)

	link := &serverLink{}
	link.srv = server.New(link, sink, server.Options{})
	return link
}

func (l *serverLink) SendTo(p protocol.Packet, _ net.Addr) error {
	l.acks = append(l.acks, p)
	return nil
}

func (l *serverLink) ReceiveFrom(time.Duration) (protocol.Packet, net.Addr, error) {
	return protocol.Packet{}, nil, errors.NewNetworkError("receive", "link", errors.ErrTimeout)
}

func (l *serverLink) Send(p protocol.Packet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.srv.ProcessPackage(p, senderAddr)
	return nil
}

func (l *serverLink) Receive(time.Duration) (protocol.Packet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.acks) == 0 {
		return protocol.Packet{}, errors.NewNetworkError("receive", "link", errors.ErrTimeout)
	}
	p := l.acks[0]
	l.acks = l.acks[1:]
	return p, nil
}

func paddedContent(content []byte) []byte {
	out := append([]byte(nil), content...)
	if rem := len(out) % protocol.PayloadSize; rem != 0 {
		out = append(out, make([]byte, protocol.PayloadSize-rem)...)
	}
	return out
}

func TestThreeThousandByteFileReachesServerOutOfOrder(t *testing.T) {
	content := make([]byte, 3000)
	for i := range content {
		content[i] = byte(i % 253)
	}
	session, err := PacketizeReader("scenario", bytes.NewReader(content))
	require.NoError(t, err)
	require.Len(t, session.Packets, 3)

	outputDir := t.TempDir()
	link := newServerLink(t, outputDir)

	var outcomes []server.Outcome
	for _, seq := range []int{1, 0, 2, 1} {
		outcomes = append(outcomes, link.srv.ProcessPackage(session.Packets[seq], senderAddr))
	}

	require.Len(t, link.acks, 4)
	acks := link.acks

	assert.Equal(t, []uint32{1, 0, 2, 1}, []uint32{
		acks[0].SequenceNumber, acks[1].SequenceNumber, acks[2].SequenceNumber, acks[3].SequenceNumber,
	})
	assert.Equal(t, uint32(1), acks[0].SequenceTotal)
	assert.Equal(t, uint32(2), acks[1].SequenceTotal)
	assert.Equal(t, uint32(3), acks[2].SequenceTotal)
	assert.Equal(t, session.Checksum, acks[2].Checksum())
	assert.True(t, outcomes[2].Complete)

	// the late duplicate starts a fresh buffer
	assert.False(t, outcomes[3].Complete)
	assert.Equal(t, uint32(1), acks[3].SequenceTotal)

	written, err := os.ReadFile(filepath.Join(outputDir, "file_1"))
	require.NoError(t, err)
	assert.Equal(t, paddedContent(content), written)
}

func TestSendSessionAgainstRealServer(t *testing.T) {
	content := repeat('z', 7*protocol.PayloadSize+11)
	session, err := PacketizeReader("real", bytes.NewReader(content))
	require.NoError(t, err)

	outputDir := t.TempDir()
	link := newServerLink(t, outputDir)

	res := SendSession(context.Background(), link, session, BuildSchedule(session.Packets, NewRand()), testOptions())

	require.NoError(t, res.Err)
	assert.Zero(t, res.Misses)
	assert.Zero(t, link.srv.Pending())

	written, err := os.ReadFile(filepath.Join(outputDir, "file_1"))
	require.NoError(t, err)
	assert.Equal(t, paddedContent(content), written)
}
