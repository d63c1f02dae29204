package client

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"udpcopier/internal/errors"
	"udpcopier/internal/protocol"
)

// responder returns the reply to a sent packet, or false for no reply
type responder func(sent protocol.Packet) (protocol.Packet, bool)

// fakeTransport answers every Send synchronously through a responder
type fakeTransport struct {
	mu      sync.Mutex
	respond responder
	sent    []protocol.Packet
	queue   []protocol.Packet
}

func newFakeTransport(r responder) *fakeTransport {
	return &fakeTransport{respond: r}
}

func (f *fakeTransport) Send(p protocol.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, p)
	if f.respond != nil {
		if reply, ok := f.respond(p); ok {
			f.queue = append(f.queue, reply)
		}
	}
	return nil
}

func (f *fakeTransport) Receive(time.Duration) (protocol.Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return protocol.Packet{}, errors.NewNetworkError("receive", "fake", errors.ErrTimeout)
	}
	p := f.queue[0]
	f.queue = f.queue[1:]
	return p, nil
}

func (f *fakeTransport) Sent() []protocol.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Packet(nil), f.sent...)
}

// fakeServer applies the receiver's dedup and count-based completion rules
type fakeServer struct {
	mu    sync.Mutex
	files map[protocol.FileID]map[uint32]protocol.Packet
}

func newFakeServer() *fakeServer {
	return &fakeServer{files: make(map[protocol.FileID]map[uint32]protocol.Packet)}
}

func (s *fakeServer) process(p protocol.Packet) (protocol.Packet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Kind != protocol.KindData {
		return protocol.Packet{}, false
	}

	buf, ok := s.files[p.FileID]
	if !ok {
		buf = make(map[uint32]protocol.Packet)
		s.files[p.FileID] = buf
	}
	if _, dup := buf[p.SequenceNumber]; !dup {
		buf[p.SequenceNumber] = p
	}

	if uint32(len(buf)) != p.SequenceTotal {
		return protocol.NewAckPacket(p.SequenceNumber, uint32(len(buf)), p.FileID), true
	}

	delete(s.files, p.FileID)
	return protocol.NewCompletionAck(p.SequenceNumber, p.SequenceTotal, p.FileID, protocol.ChecksumMap(buf)), true
}

func silent(protocol.Packet) (protocol.Packet, bool) {
	return protocol.Packet{}, false
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func testOptions() Options {
	return Options{Timeout: time.Millisecond, MaxMisses: 5}
}
