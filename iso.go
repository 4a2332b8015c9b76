package iso

import (
	"errors"

	"github.com/rstms/iso-reader/pkg"
	"github.com/rstms/iso-reader/pkg/descriptor"
	"github.com/rstms/iso-reader/pkg/directory"
	"github.com/rstms/iso-reader/pkg/extract"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/options"
	"github.com/rstms/iso-reader/pkg/path"
)

// Open opens an existing ISO image, a local file or an http(s) URL. It fails only when the image is missing
// (isoerr.ErrNotFound) or empty (isoerr.ErrEmptyImage); an image without a decodable volume is returned with
// HasVolume false.
func Open(location string, opts ...options.Option) (Image, error) {
	img, err := pkg.Open(location, options.Apply(opts...))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Image represents an opened ISO image
type Image interface {
	Close() error
	String() string
	HasVolume() bool
	VolumeError() error
	HasRockRidge() bool
	BlockSize() int64
	Size() int64
	RootDirectory() (*directory.DirectoryRecord, error)
	PathTable() (path.PathTable, error)
	ListItems(block, length uint32) ([]*directory.DirectoryRecord, error)
	FindPath(p string) (*directory.DirectoryRecord, error)
	List(p string, recursive bool) ([]string, error)
	ListEntries(p string, recursive bool) ([]*directory.DirectoryEntry, error)
	ReadFile(p string) ([]byte, error)
	Extract(isoPath, dest, pattern string, recursive, allTypes bool) error
	CheckIntegrity() bool
}

var _ Image = (*pkg.ISO9660Image)(nil)

// Volume exposes the decoded descriptors of an image opened by Open.
func Volume(img Image) (*descriptor.PrimaryVolumeDescriptor, *descriptor.BootRecordDescriptor) {
	if i, ok := img.(*pkg.ISO9660Image); ok {
		return i.PrimaryVolumeDescriptor, i.BootRecordVolumeDescriptor
	}
	return nil, nil
}

// Status is the outcome of Extract.
type Status int

const (
	Success Status = iota
	Failure
	// DeviceFile means every failure was a device node the host refused to create.
	DeviceFile
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case DeviceFile:
		return "device file"
	default:
		return "failure"
	}
}

// List returns the absolute paths below path.
func List(img Image, path string, recursive bool) ([]string, error) {
	return img.List(path, recursive)
}

// Extract extracts isoPath to dest and classifies the result. The error is returned alongside the status for
// reporting.
func Extract(img Image, isoPath, dest, pattern string, recursive, allTypes bool) (Status, error) {
	err := img.Extract(isoPath, dest, pattern, recursive, allTypes)
	return StatusOf(err), err
}

// StatusOf classifies an error returned by Image.Extract.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	var failures extract.Failures
	if errors.As(err, &failures) && failures.DevicesOnly() {
		return DeviceFile
	}
	if errors.Is(err, isoerr.ErrDeviceFile) && !errors.Is(err, isoerr.ErrWrite) && !errors.Is(err, isoerr.ErrIO) {
		return DeviceFile
	}
	return Failure
}

// CheckIntegrity reports whether the image is structurally complete.
func CheckIntegrity(img Image) bool {
	return img.CheckIntegrity()
}
