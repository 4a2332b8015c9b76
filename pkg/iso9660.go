package pkg

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/descriptor"
	"github.com/rstms/iso-reader/pkg/directory"
	"github.com/rstms/iso-reader/pkg/extract"
	"github.com/rstms/iso-reader/pkg/integrity"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/options"
	"github.com/rstms/iso-reader/pkg/path"
	"github.com/rstms/iso-reader/pkg/source"
	"github.com/rstms/iso-reader/pkg/susp"
	"github.com/rstms/iso-reader/pkg/tree"
)

// ISO9660Image represents an opened ISO 9660 image. It owns its source exclusively and is not safe for
// concurrent use.
type ISO9660Image struct {
	PrimaryVolumeDescriptor    *descriptor.PrimaryVolumeDescriptor
	BootRecordVolumeDescriptor *descriptor.BootRecordDescriptor
	Options                    options.Options

	location  string
	src       source.Source
	reader    *source.BlockReader
	walker    *tree.Walker
	table     path.PathTable
	tableErr  error
	rockRidge bool
	volumeErr error
	logger    logr.Logger
}

// Open opens the image at location, a local path or an http(s) URL. Only a missing or empty image is an
// error; an image whose volume cannot be decoded is returned with HasVolume false.
func Open(location string, opts options.Options) (*ISO9660Image, error) {
	src, err := source.Open(location, opts)
	if err != nil {
		return nil, err
	}
	img := OpenSource(src, opts)
	img.location = location
	return img, nil
}

// OpenSource reads the volume descriptors and root directory of src. It never fails: structural problems
// leave the image without a volume and every later query reports ErrNoVolume.
func OpenSource(src source.Source, opts options.Options) *ISO9660Image {
	i := &ISO9660Image{
		Options: opts,
		src:     src,
		reader:  source.NewBlockReader(src, opts.Logger),
		logger:  opts.Logger,
	}
	if err := i.parse(); err != nil {
		i.logger.Error(err, "Image has no usable volume")
		i.volumeErr = err
		if !errors.Is(err, isoerr.ErrNoVolume) {
			i.volumeErr = errors.Join(isoerr.ErrNoVolume, err)
		}
		i.walker = nil
	}
	return i
}

func (i *ISO9660Image) parse() error {
	set, err := descriptor.ReadVolumeDescriptorSet(i.reader, i.logger)
	if set != nil {
		i.BootRecordVolumeDescriptor = set.Boot
	}
	if err != nil {
		return err
	}
	pvd := set.Primary

	if err := i.reader.SetBlockSize(pvd.LogicalBlockSize); err != nil {
		return err
	}
	i.PrimaryVolumeDescriptor = pvd

	// The path table only speeds up lookups, a bad one is reported by CheckIntegrity
	i.table, i.tableErr = path.ReadPathTable(i.reader, pvd.LocationOfTypeLPathTable, pvd.PathTableSize, i.logger)
	if i.tableErr != nil {
		i.logger.Error(i.tableErr, "Failed to read path table, lookups will walk the tree")
	}

	ctx := directory.Context{
		RockRidge:    i.Options.RockRidgeEnabled,
		StripVersion: i.Options.StripVersionInfo,
		SUSP:         susp.Context{MaxContinuations: i.Options.MaxContinuations},
	}
	i.walker = tree.NewWalker(i.reader, pvd.RootDirectoryRecord, ctx, i.table, i.logger)
	if i.rockRidge, err = i.walker.DetectRockRidge(); err != nil {
		i.PrimaryVolumeDescriptor = nil
		return fmt.Errorf("%w: %w", isoerr.ErrNoVolume, err)
	}

	i.logger.V(logging.DEBUG).Info("Opened image", "volume", pvd.VolumeIdentifier, "blockSize", pvd.LogicalBlockSize,
		"blocks", pvd.VolumeSpaceSize, "rockRidge", i.rockRidge)
	return nil
}

// HasVolume reports whether a primary volume was decoded.
func (i *ISO9660Image) HasVolume() bool {
	return i.walker != nil
}

// VolumeError returns why the image has no volume, or nil.
func (i *ISO9660Image) VolumeError() error {
	return i.volumeErr
}

// HasRockRidge returns whether the root directory carries an SP entry and Rock Ridge decoding is enabled.
func (i *ISO9660Image) HasRockRidge() bool {
	return i.rockRidge
}

// BlockSize returns the logical block size in use.
func (i *ISO9660Image) BlockSize() int64 {
	return i.reader.BlockSize()
}

// Size returns the size of the image in bytes.
func (i *ISO9660Image) Size() int64 {
	return i.src.Size()
}

func (i *ISO9660Image) checkVolume() error {
	if i.walker == nil {
		return i.volumeErr
	}
	return nil
}

// RootDirectory returns the root directory record.
func (i *ISO9660Image) RootDirectory() (*directory.DirectoryRecord, error) {
	if err := i.checkVolume(); err != nil {
		return nil, err
	}
	return i.walker.Root(), nil
}

// PathTable returns the decoded L path table.
func (i *ISO9660Image) PathTable() (path.PathTable, error) {
	if err := i.checkVolume(); err != nil {
		return nil, err
	}
	return i.table, i.tableErr
}

// ListItems decodes the raw records of the directory extent at block, "." and ".." included.
func (i *ISO9660Image) ListItems(block, length uint32) ([]*directory.DirectoryRecord, error) {
	if err := i.checkVolume(); err != nil {
		return nil, err
	}
	return i.walker.ListItems(block, length)
}

// FindPath resolves an absolute image path to its directory record.
func (i *ISO9660Image) FindPath(p string) (*directory.DirectoryRecord, error) {
	if err := i.checkVolume(); err != nil {
		return nil, err
	}
	return i.walker.FindPathIndexed(p)
}

// List returns the absolute paths below the directory p.
func (i *ISO9660Image) List(p string, recursive bool) ([]string, error) {
	if err := i.checkVolume(); err != nil {
		return nil, err
	}
	return i.walker.ListDir(p, recursive)
}

// ListEntries is List with the directory records attached.
func (i *ISO9660Image) ListEntries(p string, recursive bool) ([]*directory.DirectoryEntry, error) {
	if err := i.checkVolume(); err != nil {
		return nil, err
	}
	return i.walker.ListEntries(p, recursive)
}

// ReadFile returns the whole extent of the file at p.
func (i *ISO9660Image) ReadFile(p string) ([]byte, error) {
	record, err := i.FindPath(p)
	if err != nil {
		return nil, err
	}
	if record.IsDirectory() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	if record.DataLength == 0 {
		return []byte{}, nil
	}
	return i.reader.ReadAt(int64(record.LocationOfExtent)*i.reader.BlockSize(), int(record.DataLength))
}

// Extract copies isoPath to dest on the configured filesystem. See extract.Extractor.Extract.
func (i *ISO9660Image) Extract(isoPath, dest, pattern string, recursive, allTypes bool) error {
	if err := i.checkVolume(); err != nil {
		return err
	}
	return extract.NewExtractor(i.walker, i.reader, i.Options).Extract(isoPath, dest, pattern, recursive, allTypes)
}

// CheckIntegrity reports whether the last file reachable from the path table lies within the image.
func (i *ISO9660Image) CheckIntegrity() bool {
	if i.walker == nil {
		return false
	}
	return integrity.Check(i.PrimaryVolumeDescriptor, i.reader, i.walker, i.logger)
}

// Close closes the underlying source.
func (i *ISO9660Image) Close() error {
	return i.src.Close()
}

// String returns a one line summary of the image.
func (i *ISO9660Image) String() string {
	if i.PrimaryVolumeDescriptor == nil {
		return fmt.Sprintf("ISO 9660 Image: %s (no volume)", i.location)
	}
	pvd := i.PrimaryVolumeDescriptor
	return fmt.Sprintf("ISO 9660 Image: %s volume=%q system=%q blocks=%d blockSize=%d rockRidge=%t",
		i.location, pvd.VolumeIdentifier, pvd.SystemIdentifier, pvd.VolumeSpaceSize, pvd.LogicalBlockSize, i.rockRidge)
}
