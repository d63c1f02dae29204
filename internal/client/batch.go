package client

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"udpcopier/internal/errors"
	"udpcopier/internal/logging"
	"udpcopier/internal/protocol"
)

// Dialer hands a worker the transport it should use and a func that releases it
type Dialer func() (t Transport, release func(), err error)

// Sender transfers batches of files
type Sender struct {
	Dial    Dialer
	Workers int
	Options Options

	// Rand returns the generator used for one schedule. Defaults to NewRand.
	Rand func() *rand.Rand
}

func (s *Sender) rng() *rand.Rand {
	if s.Rand != nil {
		return s.Rand()
	}
	return NewRand()
}

func (s *Sender) record(res Result) {
	if s.Options.Stats != nil {
		s.Options.Stats.RecordResult(res.OK())
	}
}

// SendFile packetizes one file and runs its send loop over t
func (s *Sender) SendFile(ctx context.Context, t Transport, path string) Result {
	session, err := Packetize(path)
	if err != nil {
		logging.LogError(err, "packetize")
		res := Result{Path: path, Err: err}
		s.record(res)
		return res
	}

	schedule := BuildSchedule(session.Packets, s.rng())
	logging.LogSessionStart(path, session.FileID.String(), len(session.Packets), len(schedule))

	res := SendSession(ctx, t, session, schedule, s.Options)
	s.record(res)
	return res
}

// SendSequential transfers the files one after another over one transport
func (s *Sender) SendSequential(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	t, release, err := s.Dial()
	if err != nil {
		return s.failAll(paths, err)
	}
	defer release()

	for i, path := range paths {
		results[i] = s.SendFile(ctx, t, path)
	}
	return results
}

// SendConcurrent runs one worker per file, at most Workers at a time, and
// joins them all before returning. Each worker obtains its transport from
// Dial; when Dial returns one shared endpoint, a response may be consumed by
// a worker other than the one whose send provoked it.
func (s *Sender) SendConcurrent(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	var g errgroup.Group
	if s.Workers > 0 {
		g.SetLimit(s.Workers)
	}

	for i, path := range paths {
		g.Go(func() error {
			t, release, err := s.Dial()
			if err != nil {
				logging.LogError(err, "dial")
				results[i] = Result{Path: path, Err: err}
				s.record(results[i])
				return nil
			}
			defer release()

			results[i] = s.SendFile(ctx, t, path)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

type pendingFile struct {
	index   int
	session *Session
}

// SendInterleaved packetizes every file, transmits all their packets through
// one combined schedule over a single transport, and verifies each file when
// an acknowledgment carrying that file's own total arrives for it. The miss
// budget is shared by the whole batch.
func (s *Sender) SendInterleaved(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))
	pending := make(map[protocol.FileID]*pendingFile, len(paths))

	var combined []protocol.Packet
	for i, path := range paths {
		session, err := Packetize(path)
		if err != nil {
			logging.LogError(err, "packetize")
			results[i] = Result{Path: path, Err: err}
			s.record(results[i])
			continue
		}

		results[i] = Result{Path: path, FileID: session.FileID, Packets: len(session.Packets)}
		pending[session.FileID] = &pendingFile{index: i, session: session}
		combined = append(combined, session.Packets...)
	}

	if len(pending) == 0 {
		return results
	}

	t, release, err := s.Dial()
	if err != nil {
		for _, p := range pending {
			results[p.index].Err = err
			s.record(results[p.index])
		}
		return results
	}
	defer release()

	schedule := BuildSchedule(combined, s.rng())
	slog.Info("Interleaved batch started", "files", len(pending), "packets", len(combined), "scheduled_sends", len(schedule))

	misses := 0
	cursor := 0

	finish := func(p *pendingFile, err error) {
		results[p.index].Err = err
		s.record(results[p.index])
		delete(pending, p.session.FileID)
	}

	for len(pending) > 0 {
		if ctx.Err() != nil {
			for _, p := range pending {
				finish(p, errors.NewTransferError(p.session.Path, p.session.FileID.String(), errors.ErrCancelled))
			}
			break
		}

		cursor = nextCursor(cursor, len(schedule))
		toSend := schedule[cursor]
		owner, ok := pending[toSend.FileID]
		if !ok {
			// already verified; resending would only open a stale buffer on the server
			continue
		}

		resp, reason := exchange(t, toSend, s.Options.Timeout)
		results[owner.index].Sends++
		if s.Options.Stats != nil {
			s.Options.Stats.RecordSend()
		}

		if reason != "" {
			misses++
			results[owner.index].Misses++
			if s.Options.Stats != nil {
				s.Options.Stats.RecordMiss()
			}

			slog.Warn("Packet has not been delivered",
				"path", owner.session.Path,
				"schedule_index", cursor,
				"seq", toSend.SequenceNumber,
				"reason", reason,
				"consecutive_misses", misses)

			if misses > s.Options.MaxMisses {
				slog.Warn("The server didn't respond", "pending_files", len(pending))
				for _, p := range pending {
					finish(p, errors.NewTransferError(p.session.Path, p.session.FileID.String(), errors.ErrRetriesExhausted))
				}
				break
			}
			continue
		}

		// Completion is judged against the acknowledged file's own total,
		// never against the total of whichever packet was just sent.
		if acked, ok := pending[resp.FileID]; ok && resp.SequenceTotal == acked.session.Total() {
			var err error
			if resp.Checksum() != acked.session.Checksum {
				err = errors.NewTransferError(acked.session.Path, acked.session.FileID.String(), errors.ErrChecksumMismatch)
				slog.Warn("File has not been delivered", "path", acked.session.Path, "reason", "checksum_mismatch")
			} else {
				slog.Info("File has been delivered", "path", acked.session.Path)
			}
			finish(acked, err)
		} else {
			slog.Debug("Progress acknowledged",
				"path", owner.session.Path,
				"seq", resp.SequenceNumber,
				"received", resp.SequenceTotal,
				"total", owner.session.Total())
		}

		misses = 0
	}

	return results
}

func (s *Sender) failAll(paths []string, err error) []Result {
	logging.LogError(err, "dial")
	results := make([]Result, len(paths))
	for i, path := range paths {
		results[i] = Result{Path: path, Err: err}
		s.record(results[i])
	}
	return results
}
