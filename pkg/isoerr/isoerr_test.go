package isoerr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIOErrorMatchesSentinelAndCause(t *testing.T) {
	err := fmt.Errorf("reading directory: %w", NewIOError("read", 4096, io.ErrUnexpectedEOF))

	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	var ioErr *IOError
	if assert.True(t, errors.As(err, &ioErr)) {
		assert.Equal(t, int64(4096), ioErr.Offset)
		assert.Equal(t, "read", ioErr.Op)
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "image not found", Message(fmt.Errorf("open: %w", ErrNotFound)))
	assert.Equal(t, "image corrupt", Message(ErrEmptyImage))
	assert.Equal(t, "image corrupt", Message(ErrNoVolume))
	assert.Equal(t, "image corrupt", Message(NewIOError("read", 0, io.EOF)))
	assert.Equal(t, "path not found inside image", Message(fmt.Errorf("%w: /BOOT", ErrPathNotFound)))
	assert.Equal(t, "path not found inside image", Message(ErrNotDirectory))
	assert.Equal(t, "write failed on host filesystem", Message(ErrWrite))
	assert.Equal(t, "write failed on host filesystem", Message(ErrDeviceFile))
}
