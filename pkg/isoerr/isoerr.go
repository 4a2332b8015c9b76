// Package isoerr holds the error conditions shared by the image reader, walker and extractor.
package isoerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the image file does not exist.
	ErrNotFound = errors.New("image not found")
	// ErrEmptyImage is returned when the image file has zero length.
	ErrEmptyImage = errors.New("image is empty")
	// ErrNoVolume is returned by every structural query on an image without a decodable primary volume descriptor.
	ErrNoVolume = errors.New("image has no usable primary volume")
	// ErrIO marks failures of the underlying byte source. IOError values match it with errors.Is.
	ErrIO = errors.New("i/o error")
	// ErrCorrupt marks structural corruption found while decoding.
	ErrCorrupt = errors.New("image corrupt")
	// ErrPathNotFound is returned when a path inside the image does not resolve.
	ErrPathNotFound = errors.New("path not found inside image")
	// ErrNotDirectory is returned when a directory operation targets a file.
	ErrNotDirectory = errors.New("not a directory")
	// ErrWrite marks failures writing to the host filesystem.
	ErrWrite = errors.New("write failed on host filesystem")
	// ErrDeviceFile is returned when a character or block special file could not be created.
	ErrDeviceFile = errors.New("cannot create device file")
)

// IOError describes a failed read or seek on the byte source.
type IOError struct {
	Op     string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
}

// Unwrap exposes both ErrIO and the underlying cause.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// NewIOError wraps err as an IOError for the given operation and byte offset.
func NewIOError(op string, offset int64, err error) error {
	return &IOError{Op: op, Offset: offset, Err: err}
}

// Message maps an error to one of the four user facing failure messages.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "image not found"
	case errors.Is(err, ErrPathNotFound), errors.Is(err, ErrNotDirectory):
		return "path not found inside image"
	case errors.Is(err, ErrWrite), errors.Is(err, ErrDeviceFile):
		return "write failed on host filesystem"
	default:
		return "image corrupt"
	}
}
