package filesystem

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"

	"udpcopier/internal/compression"
	"udpcopier/internal/config"
	"udpcopier/internal/errors"
	"udpcopier/internal/protocol"
)

// Sink persists the payload buffers of a completed file
type Sink interface {
	Persist(id protocol.FileID, payloads [][]byte) (string, error)
}

// FileSink writes each completed file to OutputDir as file_<n>, where n is a
// counter owned by the sink starting at 1.
type FileSink struct {
	OutputDir string
	Compress  bool

	index atomic.Uint64
}

// NewFileSink creates the output directory and returns a sink writing into it
func NewFileSink(outputDir string, compress bool) (*FileSink, error) {
	if err := EnsureDirectoryExists(outputDir); err != nil {
		return nil, err
	}
	return &FileSink{OutputDir: outputDir, Compress: compress}, nil
}

// NextName reserves the next output name
func (s *FileSink) NextName() string {
	name := fmt.Sprintf("file_%d", s.index.Add(1))
	if s.Compress {
		name += compression.Extension
	}
	return name
}

// Persist writes payloads concatenated, in the order given, and returns the
// path written.
func (s *FileSink) Persist(id protocol.FileID, payloads [][]byte) (string, error) {
	path := filepath.Join(s.OutputDir, s.NextName())

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.OutputPerms)
	if err != nil {
		return "", errors.NewFileSystemError("create_output", path, err)
	}

	written, digest, err := s.write(out, payloads)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = errors.NewFileSystemError("close_output", path, closeErr)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	if s.Compress {
		if err := verifyCompressed(path, digest); err != nil {
			os.Remove(path)
			return "", err
		}
	}

	attrs := []any{
		"file_id", id.String(),
		"path", path,
		"bytes", written,
		"blake2b", digest,
	}
	if s.Compress {
		if info, statErr := os.Stat(path); statErr == nil {
			attrs = append(attrs, "compression_ratio",
				compression.GetCompressionRatio(int(written), int(info.Size())))
		}
	}
	slog.Info("File saved", attrs...)

	return path, nil
}

// write streams payloads into out, optionally through gzip, and returns the
// number of uncompressed bytes together with their BLAKE2b-256 digest.
func (s *FileSink) write(out *os.File, payloads [][]byte) (int64, string, error) {
	hash, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", errors.NewFileSystemError("digest", out.Name(), err)
	}

	var dst io.Writer = out
	var gz io.WriteCloser
	if s.Compress {
		gz, err = compression.NewWriter(out)
		if err != nil {
			return 0, "", err
		}
		dst = gz
	}

	w := io.MultiWriter(dst, hash)
	var written int64
	for _, payload := range payloads {
		n, err := w.Write(payload)
		written += int64(n)
		if err != nil {
			return written, "", errors.NewFileSystemError("write_output", out.Name(), err)
		}
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return written, "", errors.NewFileSystemError("flush_output", out.Name(), err)
		}
	}

	return written, hex.EncodeToString(hash.Sum(nil)), nil
}

// verifyCompressed reads a gzip output file back and checks its content
// against the digest taken while writing
func verifyCompressed(path, digest string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.NewFileSystemError("read_back", path, err)
	}

	data, err := compression.DecompressData(raw)
	if err != nil {
		return err
	}

	sum := blake2b.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != digest {
		return errors.NewValidationError("blake2b", got, "compressed output does not match written data")
	}
	return nil
}
