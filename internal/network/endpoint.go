package network

import (
	stderrors "errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"udpcopier/internal/errors"
	"udpcopier/internal/protocol"
)

// Endpoint is a UDP socket exchanging fixed-size packets. Sends are serialized
// by one mutex and receives by another, so an Endpoint may be shared between
// goroutines; a shared Endpoint does not route a datagram to the goroutine
// whose send provoked it.
type Endpoint struct {
	conn   *net.UDPConn
	remote *net.UDPAddr

	sendMu  sync.Mutex
	sendBuf [protocol.PacketSize]byte

	recvMu  sync.Mutex
	recvBuf [protocol.PacketSize]byte
}

// Listen binds an endpoint to addr, e.g. "0.0.0.0:12345"
func Listen(addr string) (*Endpoint, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.NewNetworkError("resolve", addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.NewNetworkError("listen", addr, err)
	}

	return &Endpoint{conn: conn}, nil
}

// Dial opens an endpoint on an ephemeral local port whose Send targets remote
func Dial(remote string) (*Endpoint, error) {
	remoteAddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, errors.NewNetworkError("resolve", remote, err)
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, errors.NewNetworkError("listen", "", err)
	}

	slog.Debug("Opened client endpoint", "local_addr", conn.LocalAddr().String(), "server", remoteAddr.String())
	return &Endpoint{conn: conn, remote: remoteAddr}, nil
}

// LocalAddr returns the bound local address
func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// Send transmits p to the endpoint's remote address
func (e *Endpoint) Send(p protocol.Packet) error {
	if e.remote == nil {
		return errors.NewNetworkError("send", "", stderrors.New("endpoint has no remote address"))
	}
	return e.SendTo(p, e.remote)
}

// SendTo transmits p to addr as a single datagram
func (e *Endpoint) SendTo(p protocol.Packet, addr net.Addr) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	p.EncodeTo(e.sendBuf[:])
	if _, err := e.conn.WriteTo(e.sendBuf[:], addr); err != nil {
		return errors.NewNetworkError("send", addr.String(), err)
	}
	return nil
}

// Receive waits up to timeout for one datagram
func (e *Endpoint) Receive(timeout time.Duration) (protocol.Packet, error) {
	p, _, err := e.ReceiveFrom(timeout)
	return p, err
}

// ReceiveFrom waits up to timeout for one datagram and reports its sender.
// A timeout yields an error matching errors.ErrTimeout.
func (e *Endpoint) ReceiveFrom(timeout time.Duration) (protocol.Packet, net.Addr, error) {
	e.recvMu.Lock()
	defer e.recvMu.Unlock()

	local := e.conn.LocalAddr().String()
	if err := e.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return protocol.Packet{}, nil, errors.NewNetworkError("set_deadline", local, err)
	}

	n, addr, err := e.conn.ReadFromUDP(e.recvBuf[:])
	if err != nil {
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return protocol.Packet{}, nil, errors.NewNetworkError("receive", local, errors.ErrTimeout)
		}
		return protocol.Packet{}, nil, errors.NewNetworkError("receive", local, err)
	}

	return protocol.Decode(e.recvBuf[:n]), addr, nil
}

// Close releases the socket
func (e *Endpoint) Close() error {
	return e.conn.Close()
}
