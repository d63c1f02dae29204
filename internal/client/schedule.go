package client

import (
	"math/rand/v2"
	"slices"

	"udpcopier/internal/protocol"
)

// BuildSchedule returns the order in which packets are transmitted: the packets
// shuffled, between 1 and N/2 random duplicates appended, and the whole list
// shuffled again. Every packet appears at least once. With fewer than two
// packets no duplicates are added.
func BuildSchedule(packets []protocol.Packet, rng *rand.Rand) []protocol.Packet {
	if len(packets) == 0 {
		return nil
	}

	shuffled := slices.Clone(packets)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	duplicates := 0
	if maxDuplicates := len(shuffled) / 2; maxDuplicates >= 1 {
		duplicates = 1 + rng.IntN(maxDuplicates)
	}

	schedule := make([]protocol.Packet, len(shuffled), len(shuffled)+duplicates)
	copy(schedule, shuffled)
	for i := 0; i < duplicates; i++ {
		schedule = append(schedule, shuffled[rng.IntN(len(shuffled))])
	}

	rng.Shuffle(len(schedule), func(i, j int) {
		schedule[i], schedule[j] = schedule[j], schedule[i]
	})

	return schedule
}

// NewRand returns a randomly seeded generator for one worker
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
