package client

import (
	"context"
	"log/slog"
	"time"

	"udpcopier/internal/errors"
	"udpcopier/internal/network"
	"udpcopier/internal/progress"
	"udpcopier/internal/protocol"
)

// Transport sends packets to the server and waits for its responses.
// Receive returns an error matching errors.ErrTimeout when nothing arrives in time.
type Transport interface {
	Send(p protocol.Packet) error
	Receive(timeout time.Duration) (protocol.Packet, error)
}

// Options control the send/acknowledge loop
type Options struct {
	Timeout   time.Duration
	MaxMisses int
	Stats     *progress.Stats
}

// Result describes how one file transfer ended
type Result struct {
	Path      string
	FileID    protocol.FileID
	Packets   int
	Scheduled int
	Sends     int
	Misses    int
	RTT       time.Duration
	Quality   string
	Duration  time.Duration
	Err       error
}

// OK reports whether the server confirmed the file with a matching checksum
func (r Result) OK() bool {
	return r.Err == nil
}

// miss reasons
const (
	reasonNoResponse = "no_response"
	reasonWrongKind  = "wrong_kind"
	reasonWrongSeq   = "sequence_mismatch"
	reasonSendFailed = "send_failed"
)

// exchange transmits one packet and classifies the response. An empty reason
// means the response was accepted.
func exchange(t Transport, toSend protocol.Packet, timeout time.Duration) (protocol.Packet, string) {
	if err := t.Send(toSend); err != nil {
		slog.Debug("Send failed", "seq", toSend.SequenceNumber, "error", err)
		return protocol.Packet{}, reasonSendFailed
	}

	resp, err := t.Receive(timeout)
	switch {
	case err != nil:
		if !errors.IsTimeout(err) {
			slog.Debug("Receive failed", "error", err)
		}
		return resp, reasonNoResponse
	case resp.Kind != protocol.KindAcknowledge:
		return resp, reasonWrongKind
	case resp.SequenceNumber != toSend.SequenceNumber:
		return resp, reasonWrongSeq
	}
	return resp, ""
}

// nextCursor advances a cyclic cursor over a schedule of length n
func nextCursor(cursor, n int) int {
	if cursor < n-1 {
		return cursor + 1
	}
	return 0
}

// SendSession runs the send/acknowledge loop for one file. The cursor is
// advanced before every send. Each miss (timeout, wrong kind or wrong sequence
// number) increments a counter that any accepted progress acknowledgment
// resets; the transfer fails once the counter exceeds MaxMisses. An
// acknowledgment whose total equals the file's packet count completes the
// loop, which succeeds only if the carried checksum matches session.Checksum.
func SendSession(ctx context.Context, t Transport, session *Session, schedule []protocol.Packet, opts Options) (res Result) {
	res = Result{
		Path:      session.Path,
		FileID:    session.FileID,
		Packets:   len(session.Packets),
		Scheduled: len(schedule),
	}

	start := time.Now()
	var rtt network.RoundTripStats
	defer func() {
		res.Duration = time.Since(start)
		res.RTT = rtt.Smoothed
		missRate := 0.0
		if res.Sends > 0 {
			missRate = float64(res.Misses) / float64(res.Sends)
		}
		res.Quality = rtt.Quality(missRate)
	}()

	if len(schedule) == 0 {
		res.Err = errors.NewTransferError(session.Path, session.FileID.String(),
			errors.NewValidationError("schedule", 0, "nothing to send"))
		return res
	}

	total := session.Total()
	misses := 0
	cursor := 0

	for {
		if ctx.Err() != nil {
			res.Err = errors.NewTransferError(session.Path, session.FileID.String(), errors.ErrCancelled)
			return res
		}

		cursor = nextCursor(cursor, len(schedule))
		toSend := schedule[cursor]

		sentAt := time.Now()
		resp, reason := exchange(t, toSend, opts.Timeout)
		res.Sends++
		if opts.Stats != nil {
			opts.Stats.RecordSend()
		}

		if reason != "" {
			misses++
			res.Misses++
			if opts.Stats != nil {
				opts.Stats.RecordMiss()
			}

			slog.Warn("Packet has not been delivered",
				"path", session.Path,
				"schedule_index", cursor,
				"seq", toSend.SequenceNumber,
				"reason", reason,
				"consecutive_misses", misses)

			if misses > opts.MaxMisses {
				slog.Warn("The server didn't respond", "path", session.Path, "file_id", session.FileID.String())
				res.Err = errors.NewTransferError(session.Path, session.FileID.String(), errors.ErrRetriesExhausted)
				return res
			}
			continue
		}

		rtt.Observe(time.Since(sentAt))

		if resp.SequenceTotal == total {
			if remote := resp.Checksum(); remote != session.Checksum {
				slog.Warn("Checksum mismatch",
					"path", session.Path,
					"local_checksum", session.Checksum,
					"remote_checksum", remote)
				res.Err = errors.NewTransferError(session.Path, session.FileID.String(), errors.ErrChecksumMismatch)
			}
			return res
		}

		slog.Debug("Progress acknowledged",
			"path", session.Path,
			"seq", resp.SequenceNumber,
			"received", resp.SequenceTotal,
			"total", total)
		misses = 0
	}
}
