package progress

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"udpcopier/internal/logging"
)

// Stats holds batch transfer statistics shared by concurrent workers
type Stats struct {
	TotalFiles int64
	StartTime  time.Time

	completed atomic.Int64
	failed    atomic.Int64
	sends     atomic.Int64
	misses    atomic.Int64
}

// NewStats creates statistics for a batch of totalFiles files
func NewStats(totalFiles int) *Stats {
	return &Stats{TotalFiles: int64(totalFiles), StartTime: time.Now()}
}

// Reporter periodically reports batch progress
type Reporter struct {
	stats       *Stats
	ticker      *time.Ticker
	done        chan struct{}
	showConsole bool
}

// NewReporter creates a new progress reporter
func NewReporter(stats *Stats, interval time.Duration, showConsole bool) *Reporter {
	return &Reporter{
		stats:       stats,
		ticker:      time.NewTicker(interval),
		done:        make(chan struct{}),
		showConsole: showConsole,
	}
}

// Start begins progress reporting
func (r *Reporter) Start() {
	go r.reportLoop()
}

// Stop stops progress reporting
func (r *Reporter) Stop() {
	r.ticker.Stop()
	close(r.done)
	if r.showConsole {
		fmt.Println() // Print newline after progress bar
	}
}

func (r *Reporter) reportLoop() {
	for {
		select {
		case <-r.ticker.C:
			r.update()
		case <-r.done:
			return
		}
	}
}

func (r *Reporter) update() {
	done, failed := r.stats.Completed(), r.stats.Failed()
	logging.LogBatchProgress(done, failed, r.stats.TotalFiles, time.Since(r.stats.StartTime))

	if r.showConsole {
		fmt.Print("\r" + r.stats.Bar(30))
	}
}

// Bar renders a console progress bar of the given width
func (s *Stats) Bar(width int) string {
	finished := s.Completed() + s.Failed()
	percent := 0.0
	if s.TotalFiles > 0 {
		percent = float64(finished) / float64(s.TotalFiles) * 100
	}

	filled := int(float64(width) * percent / 100)
	return fmt.Sprintf("[%s%s] %.1f%% (%d/%d files, %d failed) sends: %d misses: %d",
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		percent,
		finished,
		s.TotalFiles,
		s.Failed(),
		s.Sends(),
		s.Misses())
}

// RecordSend atomically counts one transmitted packet
func (s *Stats) RecordSend() {
	s.sends.Add(1)
}

// RecordMiss atomically counts one unanswered or mismatched round trip
func (s *Stats) RecordMiss() {
	s.misses.Add(1)
}

// RecordResult atomically counts a finished file
func (s *Stats) RecordResult(ok bool) {
	if ok {
		s.completed.Add(1)
	} else {
		s.failed.Add(1)
	}
}

func (s *Stats) Completed() int64 { return s.completed.Load() }
func (s *Stats) Failed() int64    { return s.failed.Load() }
func (s *Stats) Sends() int64     { return s.sends.Load() }
func (s *Stats) Misses() int64    { return s.misses.Load() }
