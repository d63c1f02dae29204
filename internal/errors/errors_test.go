package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	field := "test_field"
	value := "test_value"
	reason := "invalid format"

	err := NewValidationError(field, value, reason)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), field)
	assert.Contains(t, err.Error(), value)
	assert.Contains(t, err.Error(), reason)
	assert.Contains(t, err.Error(), "validation error")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNetworkError(t *testing.T) {
	operation := "receive"
	address := "127.0.0.1:12345"
	cause := errors.New("connection refused")

	err := NewNetworkError(operation, address, cause)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), operation)
	assert.Contains(t, err.Error(), address)
	assert.Contains(t, err.Error(), cause.Error())
	assert.Contains(t, err.Error(), "network error")
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, errors.Is(err, cause))
}

func TestFileSystemError(t *testing.T) {
	operation := "read"
	path := "/test/file.txt"
	cause := errors.New("file not found")

	err := NewFileSystemError(operation, path, cause)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), operation)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), cause.Error())
	assert.Contains(t, err.Error(), "file system error")
	assert.True(t, errors.Is(err, ErrFileSystem))
}

func TestProtocolError(t *testing.T) {
	operation := "decode"
	message := "unexpected kind"
	cause := errors.New("kind 7")

	err := NewProtocolError(operation, message, cause)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), operation)
	assert.Contains(t, err.Error(), message)
	assert.Contains(t, err.Error(), cause.Error())
	assert.Contains(t, err.Error(), "protocol error")

	bare := NewProtocolError(operation, message, nil)
	assert.NotContains(t, bare.Error(), "<nil>")
}

func TestTransferError(t *testing.T) {
	err := NewTransferError("data.bin", "0102030405060708", ErrChecksumMismatch)

	assert.Contains(t, err.Error(), "data.bin")
	assert.Contains(t, err.Error(), "0102030405060708")
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
	assert.False(t, errors.Is(err, ErrRetriesExhausted))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(NewNetworkError("receive", "", ErrTimeout)))
	assert.False(t, IsTimeout(NewNetworkError("receive", "", errors.New("closed"))))
	assert.False(t, IsTimeout(nil))
}
