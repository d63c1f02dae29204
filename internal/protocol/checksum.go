package protocol

import (
	"hash/crc32"
	"sort"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checksum folds CRC32C over the full, zero-padded payload of every packet in
// the given order. Callers pass the packets already sorted by sequence number.
func Checksum(packets []Packet) uint32 {
	var sum uint32
	for i := range packets {
		sum = crc32.Update(sum, castagnoli, packets[i].Payload[:])
	}
	return sum
}

// ChecksumMap folds CRC32C over the payloads in ascending key order. It agrees
// with Checksum for the same packets.
func ChecksumMap(packets map[uint32]Packet) uint32 {
	keys := make([]uint32, 0, len(packets))
	for k := range packets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var sum uint32
	for _, k := range keys {
		p := packets[k]
		sum = crc32.Update(sum, castagnoli, p.Payload[:])
	}
	return sum
}
