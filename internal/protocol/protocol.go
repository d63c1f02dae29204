package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Wire layout constants. Client and server must agree on PacketSize exactly.
const (
	PacketSize   = 1472
	HeaderSize   = 17
	PayloadSize  = PacketSize - HeaderSize
	FileIDSize   = 8
	ChecksumSize = 4
)

// Header field offsets
const (
	offSeqNumber = 0
	offSeqTotal  = 4
	offKind      = 8
	offFileID    = 9
	offPayload   = HeaderSize
)

// Kind tags a packet as data or acknowledgment
type Kind uint8

const (
	KindAcknowledge Kind = 0
	KindData        Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindAcknowledge:
		return "ACK"
	case KindData:
		return "DATA"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// FileID is an opaque per-file identifier chosen by the sender
type FileID [FileIDSize]byte

// NewFileID returns a random identifier. It is not derived from content and
// collisions are not detected.
func NewFileID() FileID {
	var id FileID
	u := uuid.New()
	copy(id[:], u[:FileIDSize])
	return id
}

func (id FileID) String() string {
	return hex.EncodeToString(id[:])
}

// Packet is the fixed-size unit exchanged on the wire
type Packet struct {
	SequenceNumber uint32
	SequenceTotal  uint32
	Kind           Kind
	FileID         FileID
	Payload        [PayloadSize]byte
}

// NewDataPacket builds a DATA packet. Chunks shorter than PayloadSize are zero padded;
// longer chunks are cut at PayloadSize.
func NewDataPacket(seq, total uint32, id FileID, chunk []byte) Packet {
	p := Packet{
		SequenceNumber: seq,
		SequenceTotal:  total,
		Kind:           KindData,
		FileID:         id,
	}
	copy(p.Payload[:], chunk)
	return p
}

// NewAckPacket builds a progress acknowledgment with an empty payload
func NewAckPacket(seq, total uint32, id FileID) Packet {
	return Packet{
		SequenceNumber: seq,
		SequenceTotal:  total,
		Kind:           KindAcknowledge,
		FileID:         id,
	}
}

// NewCompletionAck builds an acknowledgment carrying the receiver's checksum
func NewCompletionAck(seq, total uint32, id FileID, checksum uint32) Packet {
	p := NewAckPacket(seq, total, id)
	p.PutChecksum(checksum)
	return p
}

// Checksum returns the checksum carried in the first bytes of the payload
func (p *Packet) Checksum() uint32 {
	return binary.BigEndian.Uint32(p.Payload[:ChecksumSize])
}

// PutChecksum stores checksum in the first bytes of the payload
func (p *Packet) PutChecksum(checksum uint32) {
	binary.BigEndian.PutUint32(p.Payload[:ChecksumSize], checksum)
}

// Encode serializes the packet into a new PacketSize buffer
func (p *Packet) Encode() []byte {
	buf := make([]byte, PacketSize)
	p.EncodeTo(buf)
	return buf
}

// EncodeTo serializes the packet into buf, which must hold at least PacketSize bytes
func (p *Packet) EncodeTo(buf []byte) {
	_ = buf[PacketSize-1]
	binary.BigEndian.PutUint32(buf[offSeqNumber:], p.SequenceNumber)
	binary.BigEndian.PutUint32(buf[offSeqTotal:], p.SequenceTotal)
	buf[offKind] = byte(p.Kind)
	copy(buf[offFileID:offFileID+FileIDSize], p.FileID[:])
	copy(buf[offPayload:PacketSize], p.Payload[:])
}

// Decode deserializes a wire buffer. No field is validated: input shorter than
// PacketSize is zero-extended and anything past PacketSize is ignored, so a
// truncated datagram decodes to a packet like any other.
func Decode(b []byte) Packet {
	var buf [PacketSize]byte
	copy(buf[:], b)

	var p Packet
	p.SequenceNumber = binary.BigEndian.Uint32(buf[offSeqNumber:])
	p.SequenceTotal = binary.BigEndian.Uint32(buf[offSeqTotal:])
	p.Kind = Kind(buf[offKind])
	copy(p.FileID[:], buf[offFileID:offFileID+FileIDSize])
	copy(p.Payload[:], buf[offPayload:])
	return p
}

func (p Packet) String() string {
	return fmt.Sprintf("Packet{Kind: %s, FileID: %s, Seq: %d, Total: %d}",
		p.Kind, p.FileID, p.SequenceNumber, p.SequenceTotal)
}
