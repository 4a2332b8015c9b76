package directory

import (
	"io/fs"
	"path"
	"time"
)

// Ensure that DirectoryEntry implements the os.FileInfo interface.
var _ fs.FileInfo = (*DirectoryEntry)(nil)

// DirectoryEntry is an os.FileInfo compatible wrapper around a DirectoryRecord and the absolute path it was
// reached by.
type DirectoryEntry struct {
	Record *DirectoryRecord
	Path   string
}

// NewEntry builds the entry for record found inside the directory at parentPath.
func NewEntry(parentPath string, record *DirectoryRecord) *DirectoryEntry {
	return &DirectoryEntry{Record: record, Path: JoinPath(parentPath, record.Name)}
}

// JoinPath appends name to an absolute image path.
func JoinPath(parentPath, name string) string {
	return path.Join("/", parentPath, name)
}

// Name returns the base name of the entry.
func (d *DirectoryEntry) Name() string {
	return d.Record.Name
}

// Size returns the size of the entry's extent.
func (d *DirectoryEntry) Size() int64 {
	return int64(d.Record.DataLength)
}

// Mode returns the file mode bits for the directory entry.
func (d *DirectoryEntry) Mode() fs.FileMode {
	return d.Record.Mode()
}

// ModTime returns the recording date and time of the directory entry.
func (d *DirectoryEntry) ModTime() time.Time {
	return d.Record.RecordingDateAndTime
}

// IsDir returns true if the directory entry represents a directory.
func (d *DirectoryEntry) IsDir() bool {
	return d.Record.IsDirectory()
}

// Sys returns the underlying DirectoryRecord.
func (d *DirectoryEntry) Sys() any {
	return d.Record
}
