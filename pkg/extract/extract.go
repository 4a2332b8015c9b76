// Package extract copies files and directory trees out of an image onto an afero filesystem.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/directory"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/options"
	"github.com/rstms/iso-reader/pkg/source"
	"github.com/rstms/iso-reader/pkg/tree"
	"github.com/spf13/afero"
)

const dirPerm = 0o755

// ItemError is the failure to extract one path.
type ItemError struct {
	Path string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Failures collects the per item errors of an extraction that kept going after them.
type Failures []*ItemError

func (f Failures) Error() string {
	msgs := make([]string, 0, len(f))
	for _, e := range f {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("%d item(s) failed to extract: %s", len(f), strings.Join(msgs, "; "))
}

func (f Failures) Unwrap() []error {
	errs := make([]error, 0, len(f))
	for _, e := range f {
		errs = append(errs, e)
	}
	return errs
}

// DevicesOnly reports whether every failure was a device file that could not be created.
func (f Failures) DevicesOnly() bool {
	for _, e := range f {
		if !errors.Is(e.Err, isoerr.ErrDeviceFile) {
			return false
		}
	}
	return len(f) > 0
}

// Extractor streams extents from the image to Fs.
type Extractor struct {
	walker    *tree.Walker
	reader    *source.BlockReader
	fs        afero.Fs
	chunkSize int
	progress  options.ProgressCallback
	logger    logr.Logger
}

func NewExtractor(w *tree.Walker, r *source.BlockReader, opts options.Options) *Extractor {
	return &Extractor{
		walker:    w,
		reader:    r,
		fs:        opts.Fs,
		chunkSize: opts.ChunkSize,
		progress:  opts.ProgressCallback,
		logger:    opts.Logger,
	}
}

// Extract resolves isoPath and extracts it to dest. pattern, when not empty, is a regular expression searched
// for in entry names below a directory. A regular file is written to dest itself.
func (e *Extractor) Extract(isoPath, dest, pattern string, recursive, allTypes bool) error {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid name pattern %q: %w", pattern, err)
		}
	}

	record, err := e.walker.FindPath(isoPath)
	if err != nil {
		return err
	}
	if record.IsDirectory() {
		return e.ExtractDir(record, tree.Clean(isoPath), dest, re, recursive, allTypes)
	}

	e.logger.V(logging.DEBUG).Info("Extracting file", "path", isoPath, "dest", dest)
	if err := e.ExtractFile(record, tree.Clean(isoPath), dest, allTypes, 1, 1); err != nil {
		if isReadError(err) {
			return err
		}
		return Failures{{Path: tree.Clean(isoPath), Err: err}}
	}
	return nil
}

type planItem struct {
	record  *directory.DirectoryRecord
	isoPath string
	dest    string
}

// plan lists what ExtractDir will create. With re set only the children of dir whose name matches are taken;
// everything below a matched directory is taken without matching.
func (e *Extractor) plan(dir *directory.DirectoryRecord, isoPath, dest string, re *regexp.Regexp, recursive bool, visited map[uint32]bool, out *[]planItem) error {
	if visited[dir.LocationOfExtent] {
		return nil
	}
	visited[dir.LocationOfExtent] = true

	items, err := e.walker.ListItems(dir.LocationOfExtent, dir.DataLength)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.IsSpecial() {
			continue
		}
		if re != nil && !re.MatchString(item.Name) {
			continue
		}
		child := planItem{
			record:  item,
			isoPath: directory.JoinPath(isoPath, item.Name),
			dest:    filepath.Join(dest, item.Name),
		}

		*out = append(*out, child)
		if !item.IsDirectory() || !recursive {
			continue
		}
		if err := e.plan(item, child.isoPath, child.dest, nil, recursive, visited, out); err != nil {
			return err
		}
	}
	return nil
}

// ExtractDir creates dest and extracts the children of dir into it. Failures writing one item are collected
// and the remaining items are still extracted; failures reading the image abort.
func (e *Extractor) ExtractDir(dir *directory.DirectoryRecord, isoPath, dest string, re *regexp.Regexp, recursive, allTypes bool) error {
	var items []planItem
	if err := e.plan(dir, isoPath, dest, re, recursive, map[uint32]bool{}, &items); err != nil {
		return err
	}

	var failures Failures
	if err := e.fs.MkdirAll(dest, dirPerm); err != nil {
		return append(failures, &ItemError{Path: isoPath, Err: errors.Join(isoerr.ErrWrite, err)})
	}

	total := 0
	for _, item := range items {
		if !item.record.IsDirectory() {
			total++
		}
	}
	e.logger.V(logging.DEBUG).Info("Extracting directory", "path", isoPath, "dest", dest, "entries", len(items), "files", total)

	current := 0
	for _, item := range items {
		if item.record.IsDirectory() {
			if err := e.fs.MkdirAll(item.dest, dirPerm); err != nil {
				e.logger.Error(err, "Failed to create directory", "dest", item.dest)
				failures = append(failures, &ItemError{Path: item.isoPath, Err: errors.Join(isoerr.ErrWrite, err)})
			}
			continue
		}

		current++
		if err := e.ExtractFile(item.record, item.isoPath, item.dest, allTypes, current, total); err != nil {
			if isReadError(err) {
				return err
			}
			e.logger.Error(err, "Failed to extract file", "path", item.isoPath, "dest", item.dest)
			failures = append(failures, &ItemError{Path: item.isoPath, Err: err})
		}
	}

	if len(failures) > 0 {
		return failures
	}
	return nil
}

// ExtractFile writes the extent of record to dest, creating parent directories. With allTypes set, records
// carrying a non-zero Rock Ridge device number and a character or block device mode are recreated as device
// nodes instead. fileNumber and fileCount are passed through to the progress callback.
func (e *Extractor) ExtractFile(record *directory.DirectoryRecord, isoPath, dest string, allTypes bool, fileNumber, fileCount int) error {
	if err := e.fs.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return errors.Join(isoerr.ErrWrite, err)
	}

	if allTypes && record.RockRidge.IsDevice() {
		px := record.RockRidge.Posix
		if px != nil && (px.IsCharDevice() || px.IsBlockDevice()) {
			dev := record.RockRidge.Device
			e.logger.V(logging.DEBUG).Info("Creating device node", "dest", dest, "mode", px.Mode, "major", dev.Major, "minor", dev.Minor)
			return mknod(e.fs, dest, px.RawMode, dev.Major, dev.Minor)
		}
	}

	out, err := e.fs.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Join(isoerr.ErrWrite, err)
	}
	defer out.Close()

	size := int64(record.DataLength)
	start := int64(record.LocationOfExtent) * e.reader.BlockSize()
	var written int64
	for written < size {
		n := int64(e.chunkSize)
		if remaining := size - written; remaining < n {
			n = remaining
		}
		buf, err := e.reader.ReadAt(start+written, int(n))
		if err != nil {
			return fmt.Errorf("failed to read %s from image: %w", isoPath, err)
		}
		if _, err := out.Write(buf); err != nil {
			return errors.Join(isoerr.ErrWrite, err)
		}
		written += n

		if e.progress != nil {
			e.progress(isoPath, written, size, fileNumber, fileCount)
		}
	}
	if size == 0 && e.progress != nil {
		e.progress(isoPath, 0, 0, fileNumber, fileCount)
	}

	e.logger.V(logging.TRACE).Info("Extracted file", "path", isoPath, "dest", dest, "bytes", written)
	return out.Close()
}

func isReadError(err error) bool {
	return errors.Is(err, isoerr.ErrIO) && !errors.Is(err, isoerr.ErrWrite) && !errors.Is(err, isoerr.ErrDeviceFile)
}
