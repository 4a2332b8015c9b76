// Package tree lists directory extents and resolves image paths to directory records.
package tree

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/directory"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/path"
	"github.com/rstms/iso-reader/pkg/source"
)

// Walker reads directory extents through a BlockReader. It holds no cache, so every call re-reads the image.
type Walker struct {
	reader *source.BlockReader
	root   *directory.DirectoryRecord
	ctx    directory.Context
	table  path.PathTable
	logger logr.Logger
}

// NewWalker returns a walker rooted at root. The SUSP reader in ctx is set to r so continuation areas can be
// followed. table may be nil.
func NewWalker(r *source.BlockReader, root *directory.DirectoryRecord, ctx directory.Context, table path.PathTable, logger logr.Logger) *Walker {
	ctx.SUSP.Reader = r
	ctx.SUSP.Logger = logger
	return &Walker{
		reader: r,
		root:   root,
		ctx:    ctx,
		table:  table,
		logger: logger,
	}
}

// Root returns the root directory record.
func (w *Walker) Root() *directory.DirectoryRecord {
	return w.root
}

// Context returns the decode settings in effect.
func (w *Walker) Context() directory.Context {
	return w.ctx
}

// DetectRockRidge reads the first block of the root directory and decodes the system use area of its own "."
// record. When that carries an SP entry the skip offset is applied to every later decode and true is returned;
// otherwise Rock Ridge decoding is turned off. An unreadable root directory is an error either way.
func (w *Walker) DetectRockRidge() (bool, error) {
	w.ctx.SUSP.SkipOffset = 0
	items, err := w.ListItems(w.root.LocationOfExtent, uint32(w.reader.BlockSize()))
	if err != nil {
		return false, fmt.Errorf("failed to read root directory: %w", err)
	}
	if !w.ctx.RockRidge {
		return false, nil
	}

	if len(items) > 0 && items[0].IsCurrent() && items[0].RockRidge != nil && items[0].RockRidge.HasSP {
		w.ctx.SUSP.SkipOffset = items[0].RockRidge.SkipOffset
		w.logger.V(logging.DEBUG).Info("Rock Ridge detected", "skipOffset", w.ctx.SUSP.SkipOffset, "extensions", items[0].RockRidge.Extensions)
		return true, nil
	}

	w.logger.V(logging.DEBUG).Info("No SP entry on root directory, reading as plain ISO9660")
	w.ctx.RockRidge = false
	return false, nil
}

// ListItems decodes every record in the directory extent at block, "." and ".." included, in on-disk order.
// Records never cross a block boundary; a zero length byte or a malformed record ends the current block.
func (w *Walker) ListItems(block, length uint32) ([]*directory.DirectoryRecord, error) {
	count := w.reader.BlocksFor(length)
	if count == 0 {
		return nil, nil
	}

	data, err := w.reader.ReadBlocks(block, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory extent at block %d: %w", block, err)
	}

	blockSize := int(w.reader.BlockSize())
	var records []*directory.DirectoryRecord
	for sector := 0; sector < count; sector++ {
		buf := data[sector*blockSize : (sector+1)*blockSize]
	records:
		for offset := 0; offset < len(buf); {
			res := directory.Decode(buf[offset:], w.ctx)
			switch res.Kind {
			case directory.KindRecord:
				records = append(records, res.Record)
				offset += int(res.Record.LengthOfDirectoryRecord)
			case directory.KindEndOfSector:
				break records
			default:
				w.logger.Error(fmt.Errorf("%w: %s", isoerr.ErrCorrupt, res.Reason), "Skipping rest of directory block",
					"block", block+uint32(sector), "offset", offset)
				break records
			}
		}
	}

	w.logger.V(logging.TRACE).Info("Listed directory extent", "block", block, "length", length, "records", len(records))
	return records, nil
}

// Split breaks an image path into its components. Empty and "." components are dropped, so "", "/" and
// "/./" all name the root.
func Split(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." {
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

// Clean returns the absolute form of an image path.
func Clean(p string) string {
	return "/" + strings.Join(Split(p), "/")
}

// FindPath resolves p from the root by scanning each directory level for the next component.
func (w *Walker) FindPath(p string) (*directory.DirectoryRecord, error) {
	return w.findFrom(w.root, Split(p), p)
}

func (w *Walker) findFrom(current *directory.DirectoryRecord, components []string, p string) (*directory.DirectoryRecord, error) {
	for _, name := range components {
		if !current.IsDirectory() {
			return nil, fmt.Errorf("%w: %s", isoerr.ErrPathNotFound, p)
		}
		child, err := w.child(current, name)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, fmt.Errorf("%w: %s", isoerr.ErrPathNotFound, p)
		}
		current = child
	}
	return current, nil
}

func (w *Walker) child(dir *directory.DirectoryRecord, name string) (*directory.DirectoryRecord, error) {
	items, err := w.ListItems(dir.LocationOfExtent, dir.DataLength)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if !item.IsSpecial() && item.Name == name {
			return item, nil
		}
	}
	return nil, nil
}

// FindPathIndexed resolves the directory components of p through the path table and only scans the final
// directory. The path table holds ISO9660 identifiers, so Rock Ridge images always use FindPath, as do images
// without a path table and paths the table cannot resolve.
func (w *Walker) FindPathIndexed(p string) (*directory.DirectoryRecord, error) {
	components := Split(p)
	if w.ctx.RockRidge || len(w.table) == 0 || len(components) == 0 {
		return w.FindPath(p)
	}

	index, ok := w.table.Lookup(components[:len(components)-1])
	if !ok {
		w.logger.V(logging.TRACE).Info("Path table lookup missed, walking tree", "path", p)
		return w.FindPath(p)
	}

	row := w.table[index-1]
	// The path table has no length, the directory's own "." record does
	items, err := w.ListItems(row.LocationOfExtent, uint32(w.reader.BlockSize()))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 || !items[0].IsCurrent() {
		return w.FindPath(p)
	}

	found, err := w.child(items[0], components[len(components)-1])
	if err != nil {
		return nil, err
	}
	if found == nil {
		return w.FindPath(p)
	}
	return found, nil
}

// ListEntries lists the directory at p, each entry carrying its absolute path. Directories come before their
// children and siblings keep on-disk order. A directory whose extent was already visited is not entered again.
func (w *Walker) ListEntries(p string, recursive bool) ([]*directory.DirectoryEntry, error) {
	dir, err := w.FindPath(p)
	if err != nil {
		return nil, err
	}
	if !dir.IsDirectory() {
		return nil, fmt.Errorf("%w: %s", isoerr.ErrNotDirectory, p)
	}

	visited := map[uint32]bool{}
	var entries []*directory.DirectoryEntry
	var walk func(dir *directory.DirectoryRecord, dirPath string) error
	walk = func(dir *directory.DirectoryRecord, dirPath string) error {
		if visited[dir.LocationOfExtent] {
			w.logger.V(logging.DEBUG).Info("Directory already visited, not descending", "path", dirPath, "extent", dir.LocationOfExtent)
			return nil
		}
		visited[dir.LocationOfExtent] = true

		items, err := w.ListItems(dir.LocationOfExtent, dir.DataLength)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.IsSpecial() {
				continue
			}
			entry := directory.NewEntry(dirPath, item)
			entries = append(entries, entry)
			if recursive && item.IsDirectory() {
				if err := walk(item, entry.Path); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(dir, Clean(p)); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListDir returns the absolute paths ListEntries would return.
func (w *Walker) ListDir(p string, recursive bool) ([]string, error) {
	entries, err := w.ListEntries(p, recursive)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths, nil
}
