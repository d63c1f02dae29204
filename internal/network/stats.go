package network

import "time"

// rttAlpha weights the newest sample in the smoothed round-trip time
const rttAlpha = 0.125

// RoundTripStats tracks round-trip times of accepted acknowledgments for one
// transfer. It is not safe for concurrent use.
type RoundTripStats struct {
	Smoothed time.Duration
	Min      time.Duration
	Max      time.Duration
	Samples  int
}

// Observe records one round trip
func (s *RoundTripStats) Observe(rtt time.Duration) {
	if s.Samples == 0 {
		s.Smoothed = rtt
		s.Min = rtt
		s.Max = rtt
	} else {
		s.Smoothed = time.Duration((1-rttAlpha)*float64(s.Smoothed) + rttAlpha*float64(rtt))
		s.Min = min(s.Min, rtt)
		s.Max = max(s.Max, rtt)
	}
	s.Samples++
}

// Quality classifies the observed latency and miss rate
func (s *RoundTripStats) Quality(missRate float64) string {
	switch {
	case s.Samples == 0:
		return "unknown"
	case s.Smoothed < 10*time.Millisecond && missRate < 0.001:
		return "excellent"
	case s.Smoothed < 50*time.Millisecond && missRate < 0.01:
		return "good"
	case s.Smoothed < 150*time.Millisecond && missRate < 0.05:
		return "fair"
	}
	return "poor"
}
