package client

import (
	"io"
	"math"
	"os"

	"udpcopier/internal/errors"
	"udpcopier/internal/filesystem"
	"udpcopier/internal/protocol"
)

// Session is one file split into DATA packets 0..N-1 sharing a FileID
type Session struct {
	Path     string
	FileID   protocol.FileID
	Packets  []protocol.Packet
	Checksum uint32
	Size     int64
}

// Total returns the number of packets in the file
func (s *Session) Total() uint32 {
	return uint32(len(s.Packets))
}

// Packetize reads the file at path into a Session
func Packetize(path string) (*Session, error) {
	info, err := filesystem.GetFileInfo(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, errors.NewValidationError("file_path", path, "cannot transfer directories")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewFileSystemError("open", path, err)
	}
	defer file.Close()

	return PacketizeReader(path, file)
}

// PacketizeReader splits everything r yields into PayloadSize chunks under a
// fresh random FileID. The final chunk is zero padded.
func PacketizeReader(name string, r io.Reader) (*Session, error) {
	session := &Session{
		Path:   name,
		FileID: protocol.NewFileID(),
	}

	chunk := make([]byte, protocol.PayloadSize)
	for seq := uint64(0); ; seq++ {
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			if seq >= math.MaxUint32 {
				return nil, errors.NewValidationError("file_size", session.Size, "file needs more packets than a 32-bit count can address")
			}
			session.Packets = append(session.Packets,
				protocol.NewDataPacket(uint32(seq), 0, session.FileID, chunk[:n]))
			session.Size += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, errors.NewFileSystemError("read_chunk", name, err)
		}
	}

	if len(session.Packets) == 0 {
		return nil, errors.NewValidationError("file_size", 0, "file is empty")
	}

	total := session.Total()
	for i := range session.Packets {
		session.Packets[i].SequenceTotal = total
	}
	session.Checksum = protocol.Checksum(session.Packets)

	return session, nil
}
