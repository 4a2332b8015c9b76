package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
)

// BlockReader addresses a Source in logical blocks. The block size starts at the ISO9660 default and is
// replaced once the primary volume descriptor has been read.
type BlockReader struct {
	src       Source
	blockSize int64
	pos       int64
	logger    logr.Logger
}

// NewBlockReader wraps src with the default 2048 byte block size.
func NewBlockReader(src Source, logger logr.Logger) *BlockReader {
	return &BlockReader{
		src:       src,
		blockSize: consts.ISO9660_SECTOR_SIZE,
		logger:    logger,
	}
}

// SetBlockSize changes the block size used for all later addressing.
func (r *BlockReader) SetBlockSize(size uint16) error {
	if size == 0 || size&(size-1) != 0 {
		return fmt.Errorf("%w: invalid logical block size %d", isoerr.ErrCorrupt, size)
	}
	r.blockSize = int64(size)
	return nil
}

// BlockSize returns the block size in bytes.
func (r *BlockReader) BlockSize() int64 {
	return r.blockSize
}

// Size returns the size of the underlying source in bytes.
func (r *BlockReader) Size() int64 {
	return r.src.Size()
}

// Source returns the underlying source.
func (r *BlockReader) Source() Source {
	return r.src
}

// Seek positions the reader at the start of block.
func (r *BlockReader) Seek(block uint32) error {
	off := int64(block) * r.blockSize
	if off > r.src.Size() {
		return isoerr.NewIOError("seek", off, io.ErrUnexpectedEOF)
	}
	r.pos = off
	return nil
}

// Read returns exactly n bytes from the current position and advances past them.
func (r *BlockReader) Read(n int) ([]byte, error) {
	buf, err := r.ReadAt(r.pos, n)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadAt returns exactly n bytes starting at byte offset off without moving the position. Ranges reaching past
// the end of the source fail before any buffer is allocated.
func (r *BlockReader) ReadAt(off int64, n int) ([]byte, error) {
	if off < 0 || n < 0 || off > r.src.Size() || int64(n) > r.src.Size()-off {
		r.logger.V(logging.TRACE).Info("Read past end of source", "offset", off, "wanted", n, "size", r.src.Size())
		return nil, isoerr.NewIOError("read", off, io.ErrUnexpectedEOF)
	}
	buf := make([]byte, n)
	got, err := r.src.ReadAt(buf, off)
	if got == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	r.logger.V(logging.TRACE).Info("Short read", "offset", off, "wanted", n, "got", got)
	var ioErr *isoerr.IOError
	if errors.As(err, &ioErr) {
		return nil, err
	}
	return nil, isoerr.NewIOError("read", off, err)
}

// ReadBlocks reads count whole blocks starting at block.
func (r *BlockReader) ReadBlocks(block uint32, count int) ([]byte, error) {
	if err := r.Seek(block); err != nil {
		return nil, err
	}
	return r.Read(int(int64(count) * r.blockSize))
}

// BlocksFor returns the number of blocks needed to hold length bytes.
func (r *BlockReader) BlocksFor(length uint32) int {
	return int((int64(length) + r.blockSize - 1) / r.blockSize)
}
