// Package source provides the random access byte sources an image is read from.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/options"
	"golang.org/x/exp/mmap"
)

// Source is a random access view of an image.
type Source interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Open selects a source for location. http:// and https:// locations are fetched with range requests,
// anything else is treated as a local path.
func Open(location string, opts options.Options) (src Source, err error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		var s *HTTPSource
		if s, err = OpenHTTP(location, opts.HTTPTimeout); err == nil {
			src = s
		}
	case opts.SourceType == options.SOURCE_MMAP:
		var s *MmapSource
		if s, err = OpenMmap(location); err == nil {
			src = s
		}
	default:
		var s *FileSource
		if s, err = OpenFile(location); err == nil {
			src = s
		}
	}
	return src, err
}

// statImage checks that path names a non-empty regular file.
func statImage(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", isoerr.ErrNotFound, path)
		}
		return 0, isoerr.NewIOError("stat", 0, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", isoerr.ErrNotFound, path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: %s", isoerr.ErrEmptyImage, path)
	}
	return info.Size(), nil
}

// FileSource reads an image through an *os.File.
type FileSource struct {
	file *os.File
	size int64
}

// OpenFile opens a local image file.
func OpenFile(path string) (*FileSource, error) {
	size, err := statImage(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, isoerr.NewIOError("open", 0, err)
	}
	return &FileSource{file: f, size: size}, nil
}

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

func (s *FileSource) Size() int64 {
	return s.size
}

func (s *FileSource) Close() error {
	return s.file.Close()
}

// MmapSource reads an image through a read-only memory mapping.
type MmapSource struct {
	reader *mmap.ReaderAt
}

// OpenMmap maps a local image file into memory.
func OpenMmap(path string) (*MmapSource, error) {
	if _, err := statImage(path); err != nil {
		return nil, err
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, isoerr.NewIOError("mmap", 0, err)
	}
	return &MmapSource{reader: r}, nil
}

func (s *MmapSource) ReadAt(p []byte, off int64) (int, error) {
	return s.reader.ReadAt(p, off)
}

func (s *MmapSource) Size() int64 {
	return int64(s.reader.Len())
}

func (s *MmapSource) Close() error {
	return s.reader.Close()
}

// MemorySource serves an image held in memory.
type MemorySource struct {
	*bytes.Reader
}

// FromBytes wraps data as a Source. An empty slice is rejected like an empty file.
func FromBytes(data []byte) (*MemorySource, error) {
	if len(data) == 0 {
		return nil, isoerr.ErrEmptyImage
	}
	return &MemorySource{Reader: bytes.NewReader(data)}, nil
}

func (s *MemorySource) Close() error {
	return nil
}
