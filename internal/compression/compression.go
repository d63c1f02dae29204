package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"

	"udpcopier/internal/errors"
)

// Extension is appended to the names of compressed output files
const Extension = ".gz"

// NewWriter returns a gzip writer tuned for speed, since received files are
// written while the server loop waits.
func NewWriter(w io.Writer) (io.WriteCloser, error) {
	writer, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return nil, errors.NewFileSystemError("create_gzip_writer", "", err)
	}
	return writer, nil
}

// DecompressData decompresses gzip-compressed data
func DecompressData(compressedData []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, errors.NewFileSystemError("create_gzip_reader", "", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewFileSystemError("read_gzip", "", err)
	}

	slog.Debug("Data decompressed",
		"compressed_size", len(compressedData),
		"decompressed_size", len(data))

	return data, nil
}

// GetCompressionRatio calculates the compression ratio
func GetCompressionRatio(originalSize, compressedSize int) float64 {
	if compressedSize == 0 {
		return 0
	}
	return float64(originalSize) / float64(compressedSize)
}
