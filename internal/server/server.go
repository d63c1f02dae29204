package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"udpcopier/internal/config"
	"udpcopier/internal/errors"
	"udpcopier/internal/filesystem"
	"udpcopier/internal/logging"
	"udpcopier/internal/network"
	"udpcopier/internal/protocol"
)

// PacketConn is the datagram endpoint the server loop reads from and answers on
type PacketConn interface {
	ReceiveFrom(timeout time.Duration) (protocol.Packet, net.Addr, error)
	SendTo(p protocol.Packet, addr net.Addr) error
}

// Options tune the receive loop
type Options struct {
	// PollTimeout bounds each wait for a datagram
	PollTimeout time.Duration

	// IdleTimeout evicts buffers untouched for longer than this. Zero keeps
	// buffers until their file completes.
	IdleTimeout time.Duration

	// StrictCompletion rejects DATA packets whose sequence number is not
	// below their declared total, so a full count implies keys 0..total-1.
	StrictCompletion bool

	// Now defaults to time.Now
	Now func() time.Time
}

// Outcome reports what ProcessPackage did with one packet
type Outcome struct {
	// Handled is false for packets the server does not act on (acknowledgments)
	Handled  bool
	Complete bool
	Checksum uint32
	Ack      protocol.Packet
	Path     string
}

// Server reassembles files from DATA packets. All state is owned by the
// goroutine calling Run or ProcessPackage, so none of it is locked.
type Server struct {
	conn    PacketConn
	sink    filesystem.Sink
	opts    Options
	buffers map[protocol.FileID]*reassembly

	// idle sweeps run at most once per PollTimeout, whether or not traffic arrives
	lastSweep time.Time

	received  uint64
	completed uint64
	evicted   uint64
}

// New creates a server answering on conn and persisting completed files to sink
func New(conn PacketConn, sink filesystem.Sink, opts Options) *Server {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = config.DefaultPollTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		conn:      conn,
		sink:      sink,
		opts:      opts,
		buffers:   make(map[protocol.FileID]*reassembly),
		lastSweep: opts.Now(),
	}
}

// Pending returns the number of files with a partial buffer
func (s *Server) Pending() int {
	return len(s.buffers)
}

// Run serves until ctx is cancelled or the endpoint is closed
func (s *Server) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.logShutdown()
			return nil
		}

		p, from, err := s.conn.ReceiveFrom(s.opts.PollTimeout)
		if err != nil {
			switch {
			case errors.IsTimeout(err):
				s.sweepIfDue()
				continue
			case stderrors.Is(err, net.ErrClosed):
				s.logShutdown()
				return nil
			}
			return err
		}

		s.received++
		s.ProcessPackage(p, from)
		s.sweepIfDue()
	}
}

func (s *Server) sweepIfDue() {
	now := s.opts.Now()
	if now.Sub(s.lastSweep) < s.opts.PollTimeout {
		return
	}
	s.lastSweep = now
	s.Sweep()
}

// ProcessPackage applies one received packet. DATA packets are added to their
// file's buffer, duplicates dropped. While the buffer holds fewer distinct
// sequence numbers than the packet's declared total, a progress
// acknowledgment carrying the buffer size is sent. Once it holds exactly that
// many, a completion acknowledgment carrying the checksum is sent, the file
// is persisted and the buffer discarded.
func (s *Server) ProcessPackage(p protocol.Packet, from net.Addr) Outcome {
	if p.Kind == protocol.KindAcknowledge {
		slog.Debug("Ignoring acknowledgment", "from", addrString(from), "file_id", p.FileID.String())
		return Outcome{}
	}

	if s.opts.StrictCompletion && p.SequenceNumber >= p.SequenceTotal {
		logging.LogError(errors.NewProtocolError("process",
			fmt.Sprintf("sequence number %d outside declared total %d", p.SequenceNumber, p.SequenceTotal), nil), "strict_completion")

		var size uint32
		if buf, ok := s.buffers[p.FileID]; ok {
			size = buf.size()
		}
		ack := protocol.NewAckPacket(p.SequenceNumber, size, p.FileID)
		s.send(ack, from)
		return Outcome{Handled: true, Ack: ack}
	}

	now := s.opts.Now()
	buf, ok := s.buffers[p.FileID]
	if !ok {
		buf = newReassembly(now)
		s.buffers[p.FileID] = buf
		slog.Debug("New file started", "file_id", p.FileID.String(), "total", p.SequenceTotal, "from", addrString(from))
	}
	buf.insert(p, now)

	if buf.size() != p.SequenceTotal {
		ack := protocol.NewAckPacket(p.SequenceNumber, buf.size(), p.FileID)
		s.send(ack, from)
		return Outcome{Handled: true, Ack: ack}
	}

	checksum := buf.checksum()
	ack := protocol.NewCompletionAck(p.SequenceNumber, p.SequenceTotal, p.FileID, checksum)
	s.send(ack, from)

	out := Outcome{Handled: true, Complete: true, Checksum: checksum, Ack: ack}

	path, err := s.sink.Persist(p.FileID, buf.payloads())
	if err != nil {
		logging.LogError(err, "persist")
	} else {
		out.Path = path
	}

	delete(s.buffers, p.FileID)
	s.completed++

	slog.Info("File received",
		"file_id", p.FileID.String(),
		"packets", p.SequenceTotal,
		"checksum", checksum,
		"path", path)
	return out
}

func (s *Server) send(ack protocol.Packet, to net.Addr) {
	if to == nil {
		return
	}
	if err := s.conn.SendTo(ack, to); err != nil {
		slog.Warn("Failed to send acknowledgment", "to", to.String(), "seq", ack.SequenceNumber, "error", err)
	}
}

// Sweep evicts buffers idle for longer than IdleTimeout and returns how many
// were dropped
func (s *Server) Sweep() int {
	if s.opts.IdleTimeout <= 0 {
		return 0
	}

	now := s.opts.Now()
	dropped := 0
	for id, buf := range s.buffers {
		if !buf.idle(now, s.opts.IdleTimeout) {
			continue
		}
		slog.Warn("Evicting incomplete file",
			"file_id", id.String(),
			"received", buf.size(),
			"idle", now.Sub(buf.lastTouched).Round(time.Second))
		delete(s.buffers, id)
		dropped++
	}
	s.evicted += uint64(dropped)
	return dropped
}

func (s *Server) logShutdown() {
	slog.Info("Server stopped",
		"packets_received", s.received,
		"files_completed", s.completed,
		"files_evicted", s.evicted,
		"files_pending", len(s.buffers))
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

// Run binds the configured address and serves until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting server", "address", cfg.ListenAddress, "output_dir", cfg.OutputDir)

	sink, err := filesystem.NewFileSink(cfg.OutputDir, cfg.CompressOutput)
	if err != nil {
		return err
	}

	ep, err := network.Listen(cfg.ListenAddress)
	if err != nil {
		return err
	}
	defer ep.Close()

	// unblock the pending receive when the context ends
	stop := context.AfterFunc(ctx, func() { ep.Close() })
	defer stop()

	slog.Info("Server ready to receive packets", "local_addr", ep.LocalAddr().String())

	srv := New(ep, sink, Options{
		PollTimeout:      cfg.PollTimeout,
		IdleTimeout:      cfg.IdleTimeout,
		StrictCompletion: cfg.StrictCompletion,
	})
	return srv.Run(ctx)
}
