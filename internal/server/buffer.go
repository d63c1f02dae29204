package server

import (
	"sort"
	"time"

	"udpcopier/internal/protocol"
)

// reassembly holds the distinct packets received so far for one FileID
type reassembly struct {
	packets     map[uint32]protocol.Packet
	lastTouched time.Time
}

func newReassembly(now time.Time) *reassembly {
	return &reassembly{
		packets:     make(map[uint32]protocol.Packet),
		lastTouched: now,
	}
}

// insert keeps the first packet seen for a sequence number and drops later
// duplicates. It reports whether p was new.
func (r *reassembly) insert(p protocol.Packet, now time.Time) bool {
	r.lastTouched = now
	if _, ok := r.packets[p.SequenceNumber]; ok {
		return false
	}
	r.packets[p.SequenceNumber] = p
	return true
}

func (r *reassembly) size() uint32 {
	return uint32(len(r.packets))
}

func (r *reassembly) checksum() uint32 {
	return protocol.ChecksumMap(r.packets)
}

// payloads returns the padded payloads in ascending sequence order
func (r *reassembly) payloads() [][]byte {
	keys := make([]uint32, 0, len(r.packets))
	for k := range r.packets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([][]byte, len(keys))
	for i, k := range keys {
		p := r.packets[k]
		out[i] = p.Payload[:]
	}
	return out
}

func (r *reassembly) idle(now time.Time, limit time.Duration) bool {
	return now.Sub(r.lastTouched) > limit
}
